package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mb = 1 << 20

type renderCall struct {
	page  int
	scale float64
}

// sizedRenderer returns a zero buffer whose size depends on page and scale.
type sizedRenderer struct {
	size  func(page int, scale float64) (int, error)
	calls []renderCall
}

func (r *sizedRenderer) RenderPage(_ context.Context, page int, scale float64) ([]byte, error) {
	r.calls = append(r.calls, renderCall{page, scale})
	n, err := r.size(page, scale)
	if err != nil {
		return nil, err
	}
	return make([]byte, n), nil
}

func fixedSizes(sizes ...int) func(int, float64) (int, error) {
	return func(page int, _ float64) (int, error) { return sizes[page-1], nil }
}

func TestRenderPages_TotalCeilingNeverExceeded(t *testing.T) {
	b := NewImageBudget(DefaultBudgetConfig(), nil)
	r := &sizedRenderer{size: fixedSizes(2*mb, 2*mb, 20*mb)}

	images, sum, err := b.RenderPages(context.Background(), r, 3)
	require.NoError(t, err)

	require.Len(t, images, 2)
	assert.Len(t, images[0], 2*mb)
	assert.Len(t, images[1], 2*mb)
	assert.True(t, sum.Truncated)
	assert.LessOrEqual(t, sum.TotalBytes, 18*mb)
	// page 3 walked the whole scale ladder before being dropped
	assert.Equal(t, []renderCall{{1, 2.0}, {2, 2.0}, {3, 2.0}, {3, 1.5}, {3, 1.0}}, r.calls)
}

func TestRenderPages_DownscalesOversizedPage(t *testing.T) {
	b := NewImageBudget(DefaultBudgetConfig(), nil)
	r := &sizedRenderer{size: func(page int, scale float64) (int, error) {
		if page == 3 && scale > 1.5 {
			return 20 * mb, nil
		}
		return 2 * mb, nil
	}}

	images, sum, err := b.RenderPages(context.Background(), r, 3)
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Len(t, images[2], 2*mb)
	assert.Equal(t, 6*mb, sum.TotalBytes)
	assert.False(t, sum.Truncated)
}

func TestRenderPages_OversizedAtLowestScaleIsStillReturned(t *testing.T) {
	b := NewImageBudget(DefaultBudgetConfig(), nil)
	r := &sizedRenderer{size: fixedSizes(5 * mb)}

	images, _, err := b.RenderPages(context.Background(), r, 1)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Len(t, images[0], 5*mb)
	assert.Len(t, r.calls, 3)
}

func TestRenderPages_GreedyAndStop(t *testing.T) {
	cfg := DefaultBudgetConfig()
	cfg.MaxTotalBytes = 10 * mb
	b := NewImageBudget(cfg, nil)
	r := &sizedRenderer{size: fixedSizes(4*mb, 4*mb, 4*mb, 1*mb)}

	images, sum, err := b.RenderPages(context.Background(), r, 4)
	require.NoError(t, err)
	assert.Len(t, images, 2, "page 4 would fit but must not be included after page 3 overflowed")
	assert.True(t, sum.Truncated)
	for _, c := range r.calls {
		assert.NotEqual(t, 4, c.page)
	}
}

func TestRenderPages_FailedPageIsSkipped(t *testing.T) {
	b := NewImageBudget(DefaultBudgetConfig(), nil)
	r := &sizedRenderer{size: func(page int, _ float64) (int, error) {
		if page == 2 {
			return 0, errors.New("broken page")
		}
		return mb, nil
	}}

	images, sum, err := b.RenderPages(context.Background(), r, 3)
	require.NoError(t, err)
	assert.Len(t, images, 2)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Rendered)
}

func TestRenderPages_PageCap(t *testing.T) {
	cfg := DefaultBudgetConfig()
	cfg.MaxPages = 2
	b := NewImageBudget(cfg, nil)
	r := &sizedRenderer{size: func(int, float64) (int, error) { return 1024, nil }}

	images, sum, err := b.RenderPages(context.Background(), r, 30)
	require.NoError(t, err)
	assert.Len(t, images, 2)
	assert.Equal(t, 2, sum.Requested)
}

func TestRenderPages_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewImageBudget(DefaultBudgetConfig(), nil)
	r := &sizedRenderer{size: fixedSizes(mb)}

	images, _, err := b.RenderPages(ctx, r, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, images)
	assert.Empty(t, r.calls)
}
