package polish

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/leadsync-cli/internal/model"
	"github.com/carebridge/leadsync-cli/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockClient returns canned replies keyed by a substring of the prompt.
type mockClient struct {
	mu      sync.Mutex
	calls   int
	replyFn func(req anthropic.MessageRequest) (string, error)
}

func (m *mockClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	text, err := m.replyFn(req)
	if err != nil {
		return nil, err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func strPtr(s string) *string { return &s }

func userPrompt(req anthropic.MessageRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}

func TestRun_MixedBatchIsolatesFailures(t *testing.T) {
	rows := []model.LeadRow{
		{ID: 1, Name: "Alpha Lodge", ContactName: strPtr("Community Outreach")},
		{ID: 2, Name: "Beta Manor", ContactName: strPtr("Wei Zhang")},
		{ID: 3, Name: "Gamma House", ContactName: strPtr("Grace Lam"), ChineseRepCandidate: true,
			DecisionMakers: []model.DecisionMaker{{"name": "Grace Lam"}, {"name": "Ping Chen", "title": "Nurse"}}},
	}

	client := &mockClient{replyFn: func(req anthropic.MessageRequest) (string, error) {
		p := userPrompt(req)
		switch {
		case strings.Contains(p, "Community Outreach"):
			return `{"valid": false}`, nil
		case strings.Contains(p, "Wei Zhang"):
			return "", eris.New("request timed out")
		case strings.Contains(p, "Grace Lam"):
			return `The Chinese staff member is listed. {"chinese_staff": "Ping Chen", "chinese_staff_role": "Nurse"}`, nil
		}
		return "", eris.New("unexpected prompt")
	}}

	p := New(client, Config{Model: "test-model"})
	results := p.Run(context.Background(), rows)
	require.Len(t, results, 3)

	// Results come back in input order with pre-assigned keys.
	assert.Equal(t, int64(1), results[0].ID)
	assert.Equal(t, int64(2), results[1].ID)
	assert.Equal(t, int64(3), results[2].ID)

	// Row 2's failure is isolated.
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	require.NoError(t, results[2].Err)

	require.NotNil(t, results[0].Proposed.ContactNameValid)
	assert.False(t, *results[0].Proposed.ContactNameValid)
	assert.Equal(t, "Ping Chen", results[2].Proposed.ChineseStaffName)

	// Rows 1 and 3 still produce applied updates.
	updates := MergeUpdates(rows, results)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(1), updates[0].ID)
	assert.Equal(t, int64(3), updates[1].ID)
}

func TestPolishOne_NoJSONInReply(t *testing.T) {
	client := &mockClient{replyFn: func(anthropic.MessageRequest) (string, error) {
		return "I cannot help with that.", nil
	}}
	p := New(client, Config{Model: "test-model"})
	results := p.Run(context.Background(), []model.LeadRow{{ID: 7, ContactName: strPtr("Wei Zhang")}})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestPolishOne_ValidDefaultsTrueWhenAbsent(t *testing.T) {
	client := &mockClient{replyFn: func(anthropic.MessageRequest) (string, error) {
		return `{"confidence": "high"}`, nil
	}}
	p := New(client, Config{Model: "test-model"})
	results := p.Run(context.Background(), []model.LeadRow{{ID: 1, ContactName: strPtr("Wei Zhang")}})
	require.NotNil(t, results[0].Proposed.ContactNameValid)
	assert.True(t, *results[0].Proposed.ContactNameValid)
}

func TestPolishOne_NullStaffIgnored(t *testing.T) {
	client := &mockClient{replyFn: func(anthropic.MessageRequest) (string, error) {
		return `{"chinese_staff": "null"}`, nil
	}}
	p := New(client, Config{Model: "test-model"})
	rows := []model.LeadRow{{ID: 1, ChineseRepCandidate: true, ContactName: strPtr("Grace Lam")}}
	results := p.Run(context.Background(), rows)
	require.NoError(t, results[0].Err)
	assert.Empty(t, results[0].Proposed.ChineseStaffName)
	assert.Empty(t, MergeUpdates(rows, results))
}

func TestMergeUpdates_InvalidClearsContact(t *testing.T) {
	rows := []model.LeadRow{{ID: 1, ContactName: strPtr("Sunrise Care Team"), ContactRole: strPtr("Team")}}
	invalid := false
	results := []Result{{ID: 1, OriginalContact: "Sunrise Care Team", Proposed: Proposed{ContactNameValid: &invalid}}}

	updates := MergeUpdates(rows, results)
	require.Len(t, updates, 1)
	assert.Nil(t, updates[0].Fields["contact_name"])
	assert.Nil(t, updates[0].Fields["contact_role"])
}

func TestMergeUpdates_InvalidWithReplacementApplies(t *testing.T) {
	rows := []model.LeadRow{{ID: 1, ContactName: strPtr("Sunrise Care Team")}}
	invalid := false
	results := []Result{{ID: 1, OriginalContact: "Sunrise Care Team", Proposed: Proposed{
		ContactNameValid: &invalid,
		NewContactName:   "Wei Zhang",
		NewContactRole:   "Administrator",
	}}}

	updates := MergeUpdates(rows, results)
	require.Len(t, updates, 1)
	assert.Equal(t, "Wei Zhang", updates[0].Fields["contact_name"])
	assert.Equal(t, "Administrator", updates[0].Fields["contact_role"])
}

func TestMergeUpdates_RepresentativeOverrideWins(t *testing.T) {
	rows := []model.LeadRow{{ID: 1, ContactName: strPtr("John Smith"), ContactRole: strPtr("Manager")}}
	invalid := false
	results := []Result{{ID: 1, OriginalContact: "John Smith", ChineseRep: true, Proposed: Proposed{
		ContactNameValid: &invalid,
		NewContactName:   "Jane Doe",
		ChineseStaffName: "Ping Chen",
		ChineseStaffRole: "Nurse",
	}}}

	updates := MergeUpdates(rows, results)
	require.Len(t, updates, 1)
	assert.Equal(t, "Ping Chen", updates[0].Fields["contact_name"])
	assert.Equal(t, "Nurse", updates[0].Fields["contact_role"])
}

func TestMergeUpdates_NoOpSuppression(t *testing.T) {
	// Staff pick identical to the stored contact: nothing to apply.
	rows := []model.LeadRow{{ID: 1, ContactName: strPtr("Ping Chen"), ContactRole: strPtr("Nurse")}}
	results := []Result{{ID: 1, OriginalContact: "Ping Chen", ChineseRep: true, Proposed: Proposed{
		ChineseStaffName: "Ping Chen",
		ChineseStaffRole: "Nurse",
	}}}
	assert.Empty(t, MergeUpdates(rows, results))

	// Same role, new name: only the name is patched.
	results[0].Proposed.ChineseStaffName = "Mei Wong"
	updates := MergeUpdates(rows, results)
	require.Len(t, updates, 1)
	assert.Equal(t, "Mei Wong", updates[0].Fields["contact_name"])
	assert.NotContains(t, updates[0].Fields, "contact_role")
}

func TestMergeUpdates_ErroredResultsExcluded(t *testing.T) {
	rows := []model.LeadRow{{ID: 1, ContactName: strPtr("Wei Zhang")}}
	results := []Result{{ID: 1, Err: eris.New("timeout")}}
	assert.Empty(t, MergeUpdates(rows, results))
}

func TestMergeUpdates_EmptyOriginalNotCleared(t *testing.T) {
	// A row with no contact and an "invalid" verdict has nothing to clear.
	rows := []model.LeadRow{{ID: 1}}
	invalid := false
	results := []Result{{ID: 1, OriginalContact: "", Proposed: Proposed{ContactNameValid: &invalid}}}
	assert.Empty(t, MergeUpdates(rows, results))
}
