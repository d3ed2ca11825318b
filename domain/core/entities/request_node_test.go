package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocklens/domain/core/valueobjects"
)

func TestNewRequestNode_RequiresResource(t *testing.T) {
	_, err := NewRequestNode("", 0, nil)
	assert.Error(t, err)
}

func TestRequestNode_BlockIsMonotonic(t *testing.T) {
	node, err := NewRequestNode("https://example.com/a.js", 1, nil)
	require.NoError(t, err)

	assert.False(t, node.IsBlocked())
	node.Block()
	assert.True(t, node.IsBlocked())

	// Blocking again changes nothing
	node.Block()
	assert.True(t, node.IsBlocked())
}

func TestRequestNode_BlockTransitively_RequiresAllParentsBlocked(t *testing.T) {
	node, err := NewRequestNode("https://example.com/a.js", 1, nil)
	require.NoError(t, err)

	node.BlockTransitively(false)
	assert.False(t, node.IsBlocked())

	node.BlockTransitively(true)
	assert.True(t, node.IsBlocked())
}

func TestRequestNode_BlockTransitively_NeverBlocksRepeated(t *testing.T) {
	node, err := NewRequestNode("https://example.com/a.js", 1, nil)
	require.NoError(t, err)
	node.MarkRepeated()

	node.BlockTransitively(true)

	assert.False(t, node.IsBlocked())
}

func TestRequestNode_AttemptsAreCopiedOnConstruction(t *testing.T) {
	attempts := valueobjects.AttemptCounts{"canvas": 1}
	node, err := NewRequestNode("https://example.com/a.js", 1, attempts)
	require.NoError(t, err)

	attempts["canvas"] = 99

	assert.Equal(t, 1, node.Attempts()["canvas"])
}

func TestRequestNode_ChildrenReturnsCopy(t *testing.T) {
	node, err := NewRequestNode("https://example.com/a.js", 1, nil)
	require.NoError(t, err)
	node.AppendChild(valueobjects.NewNodeID())

	children := node.Children()
	children[0] = valueobjects.NewNodeID()

	assert.NotEqual(t, children[0], node.Children()[0])
}

func TestRequestNode_CloneInto_IsDeepAndKeepsID(t *testing.T) {
	node, err := NewRequestNode("https://example.com/a.js", 1, valueobjects.AttemptCounts{"canvas": 1})
	require.NoError(t, err)
	node.Block()
	node.MarkRoot()
	node.AppendChild(valueobjects.NewNodeID())

	clone := node.CloneInto()

	assert.True(t, clone.ID().Equals(node.ID()))
	assert.True(t, clone.IsBlocked())
	assert.True(t, clone.IsRoot())
	assert.Equal(t, node.Children(), clone.Children())

	clone.SetAttempts(valueobjects.AttemptCounts{"canvas": 42})
	assert.Equal(t, 1, node.Attempts()["canvas"])
}
