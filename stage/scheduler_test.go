package stage

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/chazu/avm1/vm"
)

type funcUnit struct {
	name   string
	run    func() error
	target vm.Object
}

func (u *funcUnit) Run() error        { return u.run() }
func (u *funcUnit) Target() vm.Object { return u.target }
func (u *funcUnit) String() string    { return u.name }

type fakeTarget struct {
	*vm.ScriptObject
	gone bool
}

func (f *fakeTarget) TargetPath() string { return "/fake" }
func (f *fakeTarget) Unloaded() bool     { return f.gone }

func recorder(order *[]string) func(name string) *funcUnit {
	return func(name string) *funcUnit {
		return &funcUnit{name: name, run: func() error {
			*order = append(*order, name)
			return nil
		}}
	}
}

func TestSchedulerFIFO(t *testing.T) {
	s := NewScheduler()
	var order []string
	unit := recorder(&order)

	s.Queue(unit("a"))
	s.Queue(&funcUnit{name: "b", run: func() error {
		order = append(order, "b")
		s.Queue(unit("d"))
		return nil
	}})
	s.Queue(unit("c"))

	if err := s.RunAll(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ""); got != "abcd" {
		t.Errorf("order = %q, want abcd", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after drain", s.Len())
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	var order []string
	unit := recorder(&order)

	s.Queue(unit("a"))
	id := s.Queue(unit("b"))
	if !s.Cancel(id) {
		t.Fatal("Cancel returned false for a queued unit")
	}
	if s.Cancel(uuid.New()) {
		t.Error("cancelled an unknown id")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
	if err := s.RunAll(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ""); got != "a" {
		t.Errorf("order = %q", got)
	}
	if s.Cancel(id) {
		t.Error("cancelled a unit that already left the queue")
	}
}

func TestSchedulerJoinsErrors(t *testing.T) {
	s := NewScheduler()
	boom := errors.New("boom")
	var order []string
	var seen []uuid.UUID
	s.OnError = func(id uuid.UUID, _ vm.Unit, _ error) { seen = append(seen, id) }

	failing := s.Queue(&funcUnit{name: "bad", run: func() error { return boom }})
	s.Queue(recorder(&order)("after"))

	err := s.RunAll()
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("error %q does not name the unit", err)
	}
	if len(order) != 1 {
		t.Error("drain stopped at the failing unit")
	}
	if len(seen) != 1 || seen[0] != failing {
		t.Errorf("OnError saw %v", seen)
	}
}

func TestSchedulerSkipsUnloadedTargets(t *testing.T) {
	s := NewScheduler()
	var order []string
	tgt := &fakeTarget{ScriptObject: vm.NewObject()}
	u := recorder(&order)("clip")
	u.target = tgt
	s.Queue(u)
	tgt.gone = true

	if err := s.RunAll(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 0 {
		t.Errorf("ran %v on an unloaded target", order)
	}
}
