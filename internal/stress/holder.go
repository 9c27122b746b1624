// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stress

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-memcache/pool"
)

// mark is what a user wrote into a held block.
type mark struct {
	value  int
	digest uint64
}

type heldBlock struct {
	block *pool.Block
	mark  mark
}

// holder keeps one user's held blocks in release order.
type holder interface {
	push(b *pool.Block, m mark)
	pop() (*pool.Block, mark, bool)
	len() int
	each(fn func(b *pool.Block, m mark) error) error
}

func newHolder(o Order, capacity int) holder {
	if o == FIFO {
		return &fifoHolder{q: queue.New()}
	}
	return &lifoHolder{batch: pool.NewBatch(capacity), marks: make([]mark, 0, capacity)}
}

// lifoHolder releases the most recently acquired block first.
type lifoHolder struct {
	batch *pool.Batch
	marks []mark
}

func (h *lifoHolder) push(b *pool.Block, m mark) {
	h.batch.Append(b)
	h.marks = append(h.marks, m)
}

func (h *lifoHolder) pop() (*pool.Block, mark, bool) {
	b := h.batch.Pop()
	if b == nil {
		return nil, mark{}, false
	}
	last := len(h.marks) - 1
	m := h.marks[last]
	h.marks = h.marks[:last]
	return b, m, true
}

func (h *lifoHolder) len() int { return h.batch.Len() }

func (h *lifoHolder) each(fn func(*pool.Block, mark) error) error {
	for i := 0; i < h.batch.Len(); i++ {
		if err := fn(h.batch.Get(i), h.marks[i]); err != nil {
			return err
		}
	}
	return nil
}

// fifoHolder releases the oldest held block first.
type fifoHolder struct {
	q *queue.Queue
}

func (h *fifoHolder) push(b *pool.Block, m mark) {
	h.q.Add(heldBlock{block: b, mark: m})
}

func (h *fifoHolder) pop() (*pool.Block, mark, bool) {
	if h.q.Length() == 0 {
		return nil, mark{}, false
	}
	hb := h.q.Remove().(heldBlock)
	return hb.block, hb.mark, true
}

func (h *fifoHolder) len() int { return h.q.Length() }

func (h *fifoHolder) each(fn func(*pool.Block, mark) error) error {
	for i := 0; i < h.q.Length(); i++ {
		hb := h.q.Get(i).(heldBlock)
		if err := fn(hb.block, hb.mark); err != nil {
			return err
		}
	}
	return nil
}
