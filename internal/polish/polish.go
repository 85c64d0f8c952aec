// Package polish runs the second-pass LLM validation over persisted lead
// rows: it checks that contact names are real people and, for Chinese-rep
// candidates, identifies the Chinese staff member as the primary contact.
// It decides field updates; applying them to storage is the caller's job.
package polish

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carebridge/leadsync-cli/internal/model"
	"github.com/carebridge/leadsync-cli/pkg/anthropic"
)

// Config tunes the polish pass.
type Config struct {
	Model          string
	MaxTokens      int64
	Workers        int
	RequestTimeout time.Duration
}

// Polisher dispatches one LLM call per lead row through a bounded pool.
type Polisher struct {
	client anthropic.Client
	cfg    Config
}

// New creates a Polisher, applying defaults for unset config values.
func New(client anthropic.Client, cfg Config) *Polisher {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Polisher{client: client, cfg: cfg}
}

// Proposed holds the corrections the model suggested for one row.
type Proposed struct {
	ContactNameValid *bool
	NewContactName   string
	NewContactRole   string
	ChineseStaffName string
	ChineseStaffRole string
}

// Result is the per-row outcome of one polish pass. A row's failure is
// recorded here and never aborts its siblings.
type Result struct {
	ID              int64
	LeadName        string
	OriginalContact string
	ChineseRep      bool
	Proposed        Proposed
	Err             error
}

// Update is a decided field patch for one row, keyed by the row id.
type Update struct {
	ID       int64
	LeadName string
	Original string
	Fields   map[string]any
}

// llmReply is the JSON object expected inside the model's free-text reply.
type llmReply struct {
	Valid            *bool   `json:"valid"`
	NewContactName   string  `json:"new_contact_name"`
	NewContactRole   string  `json:"new_contact_role"`
	ChineseStaff     *string `json:"chinese_staff"`
	ChineseStaffRole string  `json:"chinese_staff_role"`
}

// Run polishes all rows concurrently and returns one result per row, in
// input order. Tasks are independent; each writes only its own slot.
func (p *Polisher) Run(ctx context.Context, rows []model.LeadRow) []Result {
	log := zap.L().With(zap.String("model", p.cfg.Model), zap.Int("rows", len(rows)))
	log.Info("polish pass starting", zap.Int("workers", p.cfg.Workers))

	results := make([]Result, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	var done atomic.Int64
	for i := range rows {
		i := i
		g.Go(func() error {
			results[i] = p.polishOne(gctx, &rows[i])
			if n := done.Add(1); n%10 == 0 {
				log.Info("polish progress", zap.Int64("completed", n))
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in results

	var errored int
	for i := range results {
		if results[i].Err != nil {
			errored++
		}
	}
	log.Info("polish pass complete", zap.Int("errored", errored))

	return results
}

func (p *Polisher) polishOne(ctx context.Context, row *model.LeadRow) Result {
	res := Result{
		ID:              row.ID,
		LeadName:        row.Name,
		OriginalContact: row.CurrentContact(),
		ChineseRep:      row.ChineseRepCandidate,
	}

	var prompt string
	if row.ChineseRepCandidate {
		prompt = repStaffPrompt(res.OriginalContact, staffNames(row.DecisionMakers))
	} else {
		prompt = validityPrompt(res.OriginalContact)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	resp, err := p.client.CreateMessage(reqCtx, anthropic.MessageRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
		System:    systemPrompt(),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		res.Err = err
		return res
	}

	raw, ok := extractJSONObject(resp.Text())
	if !ok {
		res.Err = eris.New("polish: no JSON object in model reply")
		return res
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		res.Err = eris.Wrap(err, "polish: parse model reply")
		return res
	}

	if row.ChineseRepCandidate {
		if reply.ChineseStaff != nil {
			staff := strings.TrimSpace(*reply.ChineseStaff)
			if staff != "" && !strings.EqualFold(staff, "null") {
				res.Proposed.ChineseStaffName = staff
				res.Proposed.ChineseStaffRole = strings.TrimSpace(reply.ChineseStaffRole)
			}
		}
	} else {
		// Absent "valid" means the model saw nothing wrong.
		valid := true
		if reply.Valid != nil {
			valid = *reply.Valid
		}
		res.Proposed.ContactNameValid = &valid
		res.Proposed.NewContactName = strings.TrimSpace(reply.NewContactName)
		res.Proposed.NewContactRole = strings.TrimSpace(reply.NewContactRole)
	}

	return res
}

// staffNames lists the decision-maker names offered to the model.
func staffNames(dms []model.DecisionMaker) []string {
	names := make([]string, 0, maxStaffInPrompt)
	for _, dm := range dms {
		if name := dm.Name(); name != "" {
			names = append(names, name)
			if len(names) == maxStaffInPrompt {
				break
			}
		}
	}
	return names
}

// MergeUpdates applies the merge policy to the polish results and returns
// the field patches to persist, in results order. Precedence: an invalid
// contact is cleared (or replaced when the model supplied a replacement);
// a differing representative-staff pick then overrides either outcome.
// Proposals equal to the row's current values are suppressed.
func MergeUpdates(rows []model.LeadRow, results []Result) []Update {
	byID := make(map[int64]*model.LeadRow, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	var updates []Update
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		row, ok := byID[res.ID]
		if !ok {
			continue
		}

		fields := make(map[string]any)
		p := res.Proposed

		if p.ContactNameValid != nil && !*p.ContactNameValid {
			if p.NewContactName != "" {
				fields["contact_name"] = p.NewContactName
				fields["contact_role"] = nullable(p.NewContactRole)
			} else if res.OriginalContact != "" {
				// No valid replacement: clear the garbage.
				fields["contact_name"] = nil
				fields["contact_role"] = nil
			}
		}

		// Representative identification wins over generic validity
		// correction when both fire.
		if p.ChineseStaffName != "" && p.ChineseStaffName != res.OriginalContact {
			fields["contact_name"] = p.ChineseStaffName
			fields["contact_role"] = nullable(p.ChineseStaffRole)
		}

		suppressNoOps(fields, row)
		if len(fields) == 0 {
			continue
		}

		updates = append(updates, Update{
			ID:       res.ID,
			LeadName: res.LeadName,
			Original: res.OriginalContact,
			Fields:   fields,
		})
	}
	return updates
}

func suppressNoOps(fields map[string]any, row *model.LeadRow) {
	if v, ok := fields["contact_name"]; ok && equalsCurrent(v, row.ContactName) {
		delete(fields, "contact_name")
	}
	if v, ok := fields["contact_role"]; ok && equalsCurrent(v, row.ContactRole) {
		delete(fields, "contact_role")
	}
}

func equalsCurrent(v any, cur *string) bool {
	if v == nil {
		return cur == nil
	}
	s, ok := v.(string)
	return ok && cur != nil && *cur == s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
