package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"blocklens/application/ports"
	"blocklens/domain/config"
	"blocklens/domain/core/valueobjects"
)

func newBuilder(t *testing.T, policy config.DuplicatePolicy) *TreeBuilder {
	t.Helper()
	builder, err := NewTreeBuilder(config.LoadDomainConfig(policy), zaptest.NewLogger(t))
	require.NoError(t, err)
	return builder
}

func navigationEvent(page string, time int64) ports.NetworkEvent {
	return ports.NetworkEvent{
		RequestedFor:      page,
		RequestedResource: page,
		Time:              &time,
		Initiator:         ports.Initiator{Type: ports.InitiatorOther},
	}
}

func urlRef(url string) *string {
	return &url
}

func urlEvent(page, resource, initiator string, time int64) ports.NetworkEvent {
	return ports.NetworkEvent{
		RequestedFor:      page,
		RequestedResource: resource,
		Time:              &time,
		Initiator:         ports.Initiator{Type: "script", URL: urlRef(initiator)},
	}
}

func TestBuildTree_SimplePage(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		urlEvent("https://page.example", "https://cdn.example/app.js", "https://page.example", 2),
		urlEvent("https://page.example", "https://tracker.example/t.gif", "https://cdn.example/app.js", 3),
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, tree.Size())
	assert.Equal(t, "https://page.example", tree.Root().Resource())

	app := tree.FindNodes("https://cdn.example/app.js")
	require.Len(t, app, 1)
	assert.True(t, app[0].HasParent(tree.Root().ID()))

	tracker := tree.FindNodes("https://tracker.example/t.gif")
	require.Len(t, tracker, 1)
	assert.True(t, tracker[0].HasParent(app[0].ID()))
}

func TestBuildTree_SkipsPreflights(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		{
			RequestedFor:      "https://page.example",
			RequestedResource: "https://api.example/data",
			Initiator:         ports.Initiator{Type: ports.InitiatorPreflight, URL: urlRef("https://page.example")},
		},
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, tree.Size())
}

func TestBuildTree_AttachesAnonymousAttemptsToRoot(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	attribution := ports.PageAttribution{
		"https://page.example": {"canvas": 1},
		"<anonymous>":          {"canvas": 4, "webgl": 2},
	}

	tree, err := builder.BuildTree([]ports.NetworkEvent{navigationEvent("https://page.example", 1)}, attribution)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.AttemptCounts{"canvas": 5, "webgl": 2}, tree.Root().Attempts())
}

func TestBuildTree_AnonymousAttemptsFollowTheCurrentRoot(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	attribution := ports.PageAttribution{
		"https://first.example":  {"canvas": 1},
		"https://second.example": {"webgl": 1},
		"<anonymous>":            {"canvas": 4},
	}

	events := []ports.NetworkEvent{
		navigationEvent("https://first.example", 1),
		navigationEvent("https://second.example", 2),
	}

	tree, err := builder.BuildTree(events, attribution)
	require.NoError(t, err)

	first := tree.FindNodes("https://first.example")
	require.Len(t, first, 1)
	second := tree.FindNodes("https://second.example")
	require.Len(t, second, 1)

	// The anonymous share moved from the first root to the second
	assert.Equal(t, valueobjects.AttemptCounts{"canvas": 1}, first[0].Attempts())
	assert.Equal(t, valueobjects.AttemptCounts{"webgl": 1, "canvas": 4}, second[0].Attempts())

	assert.True(t, second[0].HasParent(first[0].ID()))
	assert.True(t, second[0].IsRoot())
}

func TestBuildTree_RepeatedNavigationBecomesPlainChild(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	attribution := ports.PageAttribution{
		"https://page.example": {"canvas": 2},
	}

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		navigationEvent("https://other.example", 2),
		navigationEvent("https://page.example", 3),
	}

	tree, err := builder.BuildTree(events, attribution)
	require.NoError(t, err)

	pages := tree.FindNodes("https://page.example")
	require.Len(t, pages, 2)

	// The duplicate is not a root and carries no attempts of its own
	assert.False(t, pages[1].IsRoot())
	assert.True(t, pages[1].Attempts().IsEmpty())
}

func TestBuildTree_RepeatedNavigationSkippedUnderLowerBound(t *testing.T) {
	builder := newBuilder(t, config.LowerBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		navigationEvent("https://other.example", 2),
		navigationEvent("https://page.example", 3),
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	assert.Len(t, tree.FindNodes("https://page.example"), 1)
}

func TestBuildTree_UpperBoundDuplicatesGetNoAttempts(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	attribution := ports.PageAttribution{
		"https://shared.example/lib.js": {"canvas": 3},
	}

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		urlEvent("https://page.example", "https://cdn.example/a.js", "https://page.example", 2),
		urlEvent("https://page.example", "https://shared.example/lib.js", "https://page.example", 3),
		urlEvent("https://page.example", "https://shared.example/lib.js", "https://cdn.example/a.js", 4),
	}

	tree, err := builder.BuildTree(events, attribution)
	require.NoError(t, err)

	shared := tree.FindNodes("https://shared.example/lib.js")
	require.Len(t, shared, 2)

	assert.Equal(t, valueobjects.AttemptCounts{"canvas": 3}, shared[0].Attempts())
	assert.True(t, shared[1].Attempts().IsEmpty())
}

func TestBuildTree_LowerBoundReusesNodeAndFlagsRepeated(t *testing.T) {
	builder := newBuilder(t, config.LowerBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		urlEvent("https://page.example", "https://cdn.example/a.js", "https://page.example", 2),
		urlEvent("https://page.example", "https://shared.example/lib.js", "https://page.example", 3),
		urlEvent("https://page.example", "https://shared.example/lib.js", "https://cdn.example/a.js", 4),
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	shared := tree.FindNodes("https://shared.example/lib.js")
	require.Len(t, shared, 1)
	assert.True(t, shared[0].IsRepeated())

	// No second edge was recorded
	assert.Equal(t, 1, shared[0].ParentCount())
}

func TestBuildTree_UnknownInitiatorFallsBackToCurrentRoot(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		urlEvent("https://page.example", "https://cdn.example/a.js", "https://never-seen.example/x.js", 2),
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	node := tree.FindNodes("https://cdn.example/a.js")
	require.Len(t, node, 1)
	assert.True(t, node[0].HasParent(tree.Root().ID()))
}

func TestBuildTree_AssignsToAllMatchingParents(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		urlEvent("https://page.example", "https://cdn.example/a.js", "https://page.example", 2),
		// Second node for the same resource, under a different parent
		urlEvent("https://page.example", "https://other.example/b.js", "https://page.example", 3),
		urlEvent("https://page.example", "https://cdn.example/a.js", "https://other.example/b.js", 4),
		// Initiated by a.js, which exists twice: both get the child
		urlEvent("https://page.example", "https://tracker.example/t.gif", "https://cdn.example/a.js", 5),
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	tracker := tree.FindNodes("https://tracker.example/t.gif")
	require.Len(t, tracker, 1)
	assert.Equal(t, 2, tracker[0].ParentCount())
}

func TestBuildTree_CallStackInnermostCallerWins(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	stack := &ports.CallStack{
		CallFrames: []ports.CallFrame{
			{URL: "https://cdn.example/inner.js"},
			{URL: "https://cdn.example/outer.js"},
		},
		Parent: &ports.CallStack{
			CallFrames: []ports.CallFrame{{URL: "https://page.example"}},
		},
	}

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		urlEvent("https://page.example", "https://cdn.example/outer.js", "https://page.example", 2),
		urlEvent("https://page.example", "https://cdn.example/inner.js", "https://cdn.example/outer.js", 3),
		{
			RequestedFor:      "https://page.example",
			RequestedResource: "https://tracker.example/t.gif",
			Initiator:         ports.Initiator{Type: "script", Stack: stack},
		},
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	tracker := tree.FindNodes("https://tracker.example/t.gif")
	require.Len(t, tracker, 1)

	inner := tree.FindNodes("https://cdn.example/inner.js")
	require.Len(t, inner, 1)
	assert.True(t, tracker[0].HasParent(inner[0].ID()))
}

func TestBuildTree_CallStackFiltersInstrumentationFrames(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	stack := &ports.CallStack{
		CallFrames: []ports.CallFrame{
			{URL: "chrome-extension://abcdef/wrapper.js"},
			{URL: ""},
			{URL: "https://cdn.example/app.js"},
		},
	}

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		urlEvent("https://page.example", "https://cdn.example/app.js", "https://page.example", 2),
		{
			RequestedFor:      "https://page.example",
			RequestedResource: "https://tracker.example/t.gif",
			Initiator:         ports.Initiator{Type: "script", Stack: stack},
		},
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	tracker := tree.FindNodes("https://tracker.example/t.gif")
	require.Len(t, tracker, 1)

	app := tree.FindNodes("https://cdn.example/app.js")
	require.Len(t, app, 1)
	assert.True(t, tracker[0].HasParent(app[0].ID()))
}

func TestBuildTree_FullyDynamicStackFallsBackToRoot(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	stack := &ports.CallStack{CallFrames: []ports.CallFrame{{URL: ""}}}

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		{
			RequestedFor:      "https://page.example",
			RequestedResource: "https://tracker.example/t.gif",
			Initiator:         ports.Initiator{Type: "script", Stack: stack},
		},
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	tracker := tree.FindNodes("https://tracker.example/t.gif")
	require.Len(t, tracker, 1)
	assert.True(t, tracker[0].HasParent(tree.Root().ID()))
}

func TestBuildTree_NoInitiatorInformationFallsBackToRoot(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		{
			RequestedFor:      "https://page.example",
			RequestedResource: "https://beacon.example/ping",
			Initiator:         ports.Initiator{Type: ports.InitiatorOther},
		},
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	beacon := tree.FindNodes("https://beacon.example/ping")
	require.Len(t, beacon, 1)
	assert.True(t, beacon[0].HasParent(tree.Root().ID()))
}

func TestBuildTree_FirstEventWithoutNavigationIsPromoted(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		urlEvent("https://page.example", "https://cdn.example/a.js", "https://page.example", 1),
		urlEvent("https://page.example", "https://tracker.example/t.gif", "https://cdn.example/a.js", 2),
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/a.js", tree.Root().Resource())
	assert.Equal(t, 2, tree.Size())
}

func TestBuildTree_EmptyInputFails(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	_, err := builder.BuildTree(nil, nil)
	assert.Error(t, err)
}

func TestBuildTree_MissingTimeSortsLast(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 5),
		{
			RequestedFor:      "https://page.example",
			RequestedResource: "https://late.example/x.js",
			Initiator:         ports.Initiator{Type: "script", URL: urlRef("https://page.example")},
		},
		urlEvent("https://page.example", "https://early.example/y.js", "https://page.example", 6),
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	requests := tree.AllRequests()
	assert.Equal(t, "https://late.example/x.js", requests[len(requests)-1])
}

func TestBuildTree_SelfNavigationWithEmptyURLIsNotARoot(t *testing.T) {
	builder := newBuilder(t, config.UpperBound)

	events := []ports.NetworkEvent{
		navigationEvent("https://page.example", 1),
		// A client-side redirect: requests itself through "other", but the
		// url key is present (empty), so it is not a top-level navigation
		{
			RequestedFor:      "https://redirect.example",
			RequestedResource: "https://redirect.example",
			Initiator:         ports.Initiator{Type: ports.InitiatorOther, URL: urlRef("")},
		},
	}

	tree, err := builder.BuildTree(events, nil)
	require.NoError(t, err)

	redirect := tree.FindNodes("https://redirect.example")
	require.Len(t, redirect, 1)
	assert.False(t, redirect[0].IsRoot())
	assert.True(t, redirect[0].HasParent(tree.Root().ID()))
	assert.Equal(t, "https://page.example", tree.Root().Resource())
}
