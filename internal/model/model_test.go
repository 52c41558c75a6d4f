package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalDecodesThreeStates(t *testing.T) {
	var payload struct {
		Absent  Optional[string] `json:"absent"`
		Cleared Optional[string] `json:"cleared"`
		Value   Optional[string] `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"cleared": null, "value": "p1"}`), &payload))

	assert.True(t, payload.Absent.IsUnset())
	assert.True(t, payload.Cleared.IsClear())
	value, ok := payload.Value.Get()
	assert.True(t, ok)
	assert.Equal(t, "p1", value)
}

func TestOptionalApply(t *testing.T) {
	original := "keep"
	target := &original

	Unset[string]().Apply(&target)
	require.NotNil(t, target)
	assert.Equal(t, "keep", *target)

	Set("new").Apply(&target)
	require.NotNil(t, target)
	assert.Equal(t, "new", *target)

	Clear[string]().Apply(&target)
	assert.Nil(t, target)
}

func TestPaginationClamp(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPageLimit}, Pagination{}.Clamp())
	assert.Equal(t, Pagination{Page: 1, Limit: 1}, Pagination{Page: -4, Limit: -1}.Clamp())
	assert.Equal(t, Pagination{Page: MaxPage, Limit: MaxPageLimit}, Pagination{Page: MaxPage + 1, Limit: 500}.Clamp())
	assert.Equal(t, 40, Pagination{Page: 3, Limit: 20}.Offset())
}

func TestNewPageInfo(t *testing.T) {
	info := NewPageInfo(Pagination{Page: 2, Limit: 10}, 21)
	assert.Equal(t, PageInfo{Page: 2, Limit: 10, Total: 21, TotalPages: 3}, info)
	assert.Equal(t, 0, NewPageInfo(Pagination{Page: 1, Limit: 10}, 0).TotalPages)
}

func TestTagVisibleTo(t *testing.T) {
	owner := "u1"
	assert.True(t, Tag{Scope: TagScopeSystem}.VisibleTo("anyone"))
	assert.True(t, Tag{Scope: TagScopeUser, OwnerID: &owner}.VisibleTo("u1"))
	assert.False(t, Tag{Scope: TagScopeUser, OwnerID: &owner}.VisibleTo("u2"))
}
