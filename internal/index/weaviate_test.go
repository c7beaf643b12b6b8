package index

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/dbsmedya/custrecon/internal/types"
)

// fakePager serves objects in pages and can fail a number of times first.
type fakePager struct {
	objects  []*models.Object
	failures int
	calls    int
	afters   []string
}

func (p *fakePager) Page(ctx context.Context, class, after string, limit int) ([]*models.Object, error) {
	p.calls++
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("503 service unavailable")
	}
	p.afters = append(p.afters, after)

	start := 0
	if after != "" {
		for i, obj := range p.objects {
			if string(obj.ID) == after {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(p.objects) {
		end = len(p.objects)
	}
	return p.objects[start:end], nil
}

func object(n int, props map[string]interface{}) *models.Object {
	return &models.Object{
		ID:         strfmt.UUID(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
		Class:      "Customer",
		Properties: props,
	}
}

func TestWeaviateLister_Pages(t *testing.T) {
	pager := &fakePager{objects: []*models.Object{
		object(1, map[string]interface{}{"customer": "1000"}),
		object(2, map[string]interface{}{"customer": float64(2000)}),
		object(3, map[string]interface{}{"name": "no id"}),
		object(4, map[string]interface{}{"customer": " "}),
		object(5, map[string]interface{}{"customer": "5000"}),
	}}

	l, err := NewWeaviateLister(pager, "Customer", "customer", 2)
	require.NoError(t, err)

	set, stats, err := Drain(context.Background(), l, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "2000", "5000"}, set.Sorted())
	assert.Equal(t, 2, stats.Pages, "the page without identifiers is skipped")
	assert.Equal(t, "", pager.afters[0])
	assert.Equal(t, string(object(2, nil).ID), pager.afters[1])
}

func TestWeaviateLister_RetriesTransientFailure(t *testing.T) {
	pager := &fakePager{
		objects:  []*models.Object{object(1, map[string]interface{}{"customer": "42"})},
		failures: 2,
	}

	l, err := NewWeaviateLister(pager, "Customer", "customer", 10)
	require.NoError(t, err)
	l.maxElapsed = 5 * time.Second

	set, _, err := Drain(context.Background(), l, nil)
	require.NoError(t, err)
	assert.True(t, set.Contains("42"))
	assert.GreaterOrEqual(t, pager.calls, 3)
}

func TestWeaviateLister_GivesUp(t *testing.T) {
	pager := &fakePager{failures: 1 << 20}

	l, err := NewWeaviateLister(pager, "Customer", "customer", 10)
	require.NoError(t, err)
	l.maxElapsed = 50 * time.Millisecond

	set, _, err := Drain(context.Background(), l, nil)
	require.Error(t, err)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, types.ErrTargetUnavailable)
}

func TestNewWeaviateLister_Validation(t *testing.T) {
	_, err := NewWeaviateLister(nil, "Customer", "customer", 10)
	assert.Error(t, err)
	_, err = NewWeaviateLister(&fakePager{}, "", "customer", 10)
	assert.Error(t, err)
	_, err = NewWeaviateLister(&fakePager{}, "Customer", "customer", 0)
	assert.Error(t, err)
}

func TestPropertyString(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
		ok    bool
	}{
		{"string", " 1234 ", "1234", true},
		{"float", float64(1234), "1234", true},
		{"int64", int64(77), "77", true},
		{"int", 8, "8", true},
		{"empty", "", "", false},
		{"bool", true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := propertyString(object(1, map[string]interface{}{"customer": tt.value}), "customer")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := propertyString(nil, "customer")
	assert.False(t, ok)
}
