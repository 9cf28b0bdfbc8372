package gvmpkg

import (
	"errors"

	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmproc"
)

// Sync provides WaitGroup and Mutex.
// Waiting goroutines are parked with Process.Block and resumed with Process.Wake.
func Sync() gvmproc.Package {
	return gvmproc.Package{
		Name: "sync",
		Members: []gvmproc.Member{
			{Name: "NewWaitGroup", Fn: newWaitGroup},
			{Name: "Add", Fn: wgAdd},
			{Name: "Done", Fn: wgDone},
			{Name: "Wait", Fn: wgWait},
			{Name: "NewMutex", Fn: newMutex},
			{Name: "Lock", Fn: mutexLock},
			{Name: "Unlock", Fn: mutexUnlock},
		},
	}
}

var (
	ErrNegativeCounter = errors.New("sync: negative WaitGroup counter")
	ErrUnlockUnlocked  = errors.New("sync: unlock of unlocked mutex")
)

func newWaitGroup(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	if err := checkArgs(p.Heap(), "NewWaitGroup", args); err != nil {
		return 0, err
	}
	wg, err := gvmheap.NewWaitGroup(p.Heap())
	return wg.Addr(), err
}

func wgAdd(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	h := p.Heap()
	if err := checkArgs(h, "Add", args, gvmheap.TagWaitGroup, gvmheap.TagInt); err != nil {
		return 0, err
	}
	return 0, addToWaitGroup(p, h.WaitGroup(args[0]), int(h.Int(args[1]).Value()))
}

func wgDone(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	h := p.Heap()
	if err := checkArgs(h, "Done", args, gvmheap.TagWaitGroup); err != nil {
		return 0, err
	}
	return 0, addToWaitGroup(p, h.WaitGroup(args[0]), -1)
}

func addToWaitGroup(p *gvmproc.Process, wg gvmheap.WaitGroup, delta int) error {
	n := wg.Count() + delta
	if n < 0 {
		return ErrNegativeCounter
	}
	wg.SetCount(n)
	if n > 0 {
		return nil
	}
	waiters := wg.Waiters()
	for !waiters.IsEmpty() {
		c, err := waiters.PopFront()
		if err != nil {
			return err
		}
		if err := p.Wake(p.Heap().Context(c)); err != nil {
			return err
		}
	}
	return nil
}

func wgWait(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	h := p.Heap()
	if err := checkArgs(h, "Wait", args, gvmheap.TagWaitGroup); err != nil {
		return 0, err
	}
	wg := h.WaitGroup(args[0])
	if wg.Count() == 0 {
		return 0, nil
	}
	if err := wg.Waiters().PushBack(p.Current().Addr()); err != nil {
		return 0, err
	}
	return 0, p.Block()
}

func newMutex(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	if err := checkArgs(p.Heap(), "NewMutex", args); err != nil {
		return 0, err
	}
	m, err := gvmheap.NewMutex(p.Heap())
	return m.Addr(), err
}

func mutexLock(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	h := p.Heap()
	if err := checkArgs(h, "Lock", args, gvmheap.TagMutex); err != nil {
		return 0, err
	}
	m := h.Mutex(args[0])
	if !m.Locked() {
		m.SetLocked(true)
		return 0, nil
	}
	if err := m.Waiters().PushBack(p.Current().Addr()); err != nil {
		return 0, err
	}
	return 0, p.Block()
}

// mutexUnlock hands the lock directly to the longest waiting goroutine, if any.
func mutexUnlock(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	h := p.Heap()
	if err := checkArgs(h, "Unlock", args, gvmheap.TagMutex); err != nil {
		return 0, err
	}
	m := h.Mutex(args[0])
	if !m.Locked() {
		return 0, ErrUnlockUnlocked
	}
	waiters := m.Waiters()
	if waiters.IsEmpty() {
		m.SetLocked(false)
		return 0, nil
	}
	c, err := waiters.PopFront()
	if err != nil {
		return 0, err
	}
	return 0, p.Wake(h.Context(c))
}
