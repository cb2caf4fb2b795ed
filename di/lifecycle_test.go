package di

import (
	stderrors "errors"
	"testing"

	"github.com/kbukum/busdi/errors"
)

type disposeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (d *disposeRecorder) Dispose() error {
	*d.order = append(*d.order, d.name)
	return d.err
}

func TestLifecycleDisposeOrder(t *testing.T) {
	var order []string
	var released int
	root, _ := NewLifecycle(nil, "container", func() error {
		released++
		order = append(order, "native")
		return nil
	})
	child, err := NewLifecycle(root, "scope", nil)
	if err != nil {
		t.Fatalf("NewLifecycle failed: %v", err)
	}

	_ = root.Track(&disposeRecorder{name: "first", order: &order})
	_ = root.Track(&disposeRecorder{name: "second", order: &order})
	_ = child.Track(&disposeRecorder{name: "child", order: &order})

	if err := root.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := root.Dispose(); err != nil {
		t.Fatalf("second Dispose failed: %v", err)
	}

	want := []string{"child", "second", "first", "native"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
	if released != 1 {
		t.Errorf("expected native release once, got %d", released)
	}
	if !child.Disposed() {
		t.Error("expected child to be disposed with its parent")
	}
}

func TestLifecycleTrackAfterDispose(t *testing.T) {
	var order []string
	l, _ := NewLifecycle(nil, "scope", nil)
	_ = l.Dispose()

	err := l.Track(&disposeRecorder{name: "late", order: &order})
	if !errors.IsUseAfterDispose(err) {
		t.Errorf("expected USE_AFTER_DISPOSE, got %v", err)
	}
	if len(order) != 1 {
		t.Error("expected the late instance to be disposed immediately")
	}
	if _, err := NewLifecycle(l, "scope", nil); !errors.IsUseAfterDispose(err) {
		t.Errorf("expected USE_AFTER_DISPOSE for child of disposed node, got %v", err)
	}
}

func TestLifecycleTracksInstanceOnce(t *testing.T) {
	var order []string
	l, _ := NewLifecycle(nil, "scope", nil)
	d := &disposeRecorder{name: "shared", order: &order}
	_ = l.Track(d)
	_ = l.Track(d)
	_ = l.Track("not disposable")

	_ = l.Dispose()
	if len(order) != 1 {
		t.Errorf("expected one disposal, got %v", order)
	}
}

func TestLifecycleCollectsDisposeErrors(t *testing.T) {
	var order []string
	boom := stderrors.New("channel close failed")
	l, _ := NewLifecycle(nil, "scope", nil)
	_ = l.Track(&disposeRecorder{name: "ok", order: &order})
	_ = l.Track(&disposeRecorder{name: "bad", order: &order, err: boom})

	err := l.Dispose()
	if errors.CodeOf(err) != errors.ErrCodeDisposeFailure {
		t.Fatalf("expected DISPOSE_FAILURE, got %v", err)
	}
	if !stderrors.Is(err, boom) {
		t.Error("expected the dispose error to be wrapped")
	}
	if len(order) != 2 {
		t.Error("expected every instance to be disposed despite the failure")
	}
}
