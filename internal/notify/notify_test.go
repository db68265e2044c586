package notify

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("drain returns oldest first and empties", func(t *testing.T) {
		q := NewQueue(5)
		q.Notify(ctx, Error("first"))
		q.Notify(ctx, Success("second"))

		got := q.Drain()
		assert.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Message)
		assert.Equal(t, LevelSuccess, got[1].Level)
		assert.Empty(t, q.Drain())
	})

	t.Run("drops oldest when full", func(t *testing.T) {
		q := NewQueue(2)
		q.Notify(ctx, Info("a"))
		q.Notify(ctx, Info("b"))
		q.Notify(ctx, Info("c"))

		got := q.Drain()
		assert.Equal(t, []string{"b", "c"}, []string{got[0].Message, got[1].Message})
	})

	t.Run("storage stays bounded while full", func(t *testing.T) {
		q := NewQueue(3)
		for i := range 100 {
			q.Notify(ctx, Info(fmt.Sprintf("n%d", i)))
		}

		assert.LessOrEqual(t, cap(q.items), 2*q.limit)
		got := q.Drain()
		assert.Equal(t, []string{"n97", "n98", "n99"}, []string{got[0].Message, got[1].Message, got[2].Message})
	})
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Notify(context.Background(), Error("Server error. Please try again later."))
	w.Notify(context.Background(), Success("Password reset"))

	assert.Equal(t, "✗ Server error. Please try again later.\n✓ Password reset\n", buf.String())
}

func TestMulti(t *testing.T) {
	var a, b Recorder
	Multi(&a, nil, &b).Notify(context.Background(), Error("boom"))

	assert.Equal(t, []string{"boom"}, a.Messages(LevelError))
	assert.Equal(t, []string{"boom"}, b.Messages(LevelError))
}
