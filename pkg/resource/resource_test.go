package resource_test

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/mithai/pkg/orm"
	"github.com/shashiranjanraj/mithai/pkg/resource"
)

func TestCollectionRendersEmptyAsArray(t *testing.T) {
	out := resource.Collection([]int(nil), strconv.Itoa)
	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	assert.Equal(t, []string{"1", "2"}, resource.Collection([]int{1, 2}, strconv.Itoa))
}

func TestPaginateMeta(t *testing.T) {
	p := resource.Paginate([]int{5, 6}, strconv.Itoa, 12, orm.NewPage(3, 5))
	assert.Equal(t, []string{"5", "6"}, p.Items)
	assert.Equal(t, resource.Meta{Total: 12, Page: 3, PerPage: 5, TotalPages: 3}, p.Meta)
}
