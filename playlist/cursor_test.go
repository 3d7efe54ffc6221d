package playlist

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func testClock() clockwork.FakeClock {
	return clockwork.NewFakeClockAt(testNow)
}

// never is a period that ended a year before testNow.
func never() Restriction {
	return Restriction{Period: &Period{
		Start: testNow.AddDate(-2, 0, 0),
		End:   testNow.AddDate(-1, 0, 0),
	}}
}

func items(paths ...string) []Item {
	out := make([]Item, len(paths))
	for i, p := range paths {
		out[i] = Item{Path: p}
	}
	return out
}

func path(item *Item) string {
	if item == nil {
		return "<nil>"
	}
	return item.Path
}

func TestCursor_NewEmpty(t *testing.T) {
	c := New(nil, false)

	if c.CurrentIndex() != -1 {
		t.Errorf("Unexpected current index: %d", c.CurrentIndex())
	}

	if !c.IsNewIteration() {
		t.Error("New cursor is not at a new iteration")
	}

	if c.Next() != nil || c.Peek() != nil || c.Prev() != nil {
		t.Error("Empty cursor returned an item")
	}

	if c.OnlyOneActive() {
		t.Error("Empty cursor has an active item")
	}
}

func TestCursor_NewFromPaths(t *testing.T) {
	seconds := 5
	c := NewFromPaths(
		[]string{"a.mp4", "b.mp4", "c.mp4"},
		[]Restriction{{}, {ScreenTime: &seconds}},
		false,
	)

	if c.Len() != 2 {
		t.Fatalf("Unexpected length: %d", c.Len())
	}

	if d, ok := c.ScreenTime(1); !ok || d != 5*time.Second {
		t.Errorf("Unexpected screen time: %v %v", d, ok)
	}
}

func TestCursor_NextSequential(t *testing.T) {
	c := New(items("A", "B", "C"), false, WithClock(testClock()))

	if c.CurrentIndex() != positionNone {
		t.Error("Not undefined position")
	}

	expected := []struct {
		path         string
		index        int
		newIteration bool
	}{
		{"A", 0, true},
		{"B", 1, false},
		{"C", 2, false},
		{"A", 0, true},
		{"B", 1, false},
	}

	for i, e := range expected {
		got := c.Next()
		if path(got) != e.path {
			t.Errorf("step %d: expected %s, got %s", i, e.path, path(got))
		}
		if c.CurrentIndex() != e.index {
			t.Errorf("step %d: unexpected index %d", i, c.CurrentIndex())
		}
		if c.IsNewIteration() != e.newIteration {
			t.Errorf("step %d: unexpected new iteration %v", i, c.IsNewIteration())
		}
		c.AcknowledgeIteration()
	}
}

func TestCursor_NextVisitsEveryIndex(t *testing.T) {
	for n := 1; n <= 7; n++ {
		paths := make([]string, n)
		for i := range paths {
			paths[i] = string(rune('A' + i))
		}
		c := New(items(paths...), false, WithClock(testClock()))

		for round := 0; round < 3; round++ {
			for i := 0; i < n; i++ {
				got := c.Next()
				if path(got) != paths[i] {
					t.Fatalf("n=%d round=%d: expected %s, got %s", n, round, paths[i], path(got))
				}
				if c.IsNewIteration() != (i == 0) {
					t.Fatalf("n=%d round=%d i=%d: unexpected new iteration", n, round, i)
				}
				c.AcknowledgeIteration()
			}
		}
	}
}

func TestCursor_NextSkipsOffSchedule(t *testing.T) {
	list := items("A", "B")
	list[0].Restriction = never()
	c := New(list, false, WithClock(testClock()))

	got := c.Next()
	if path(got) != "B" {
		t.Errorf("Expected B, got %s", path(got))
	}

	if c.CurrentIndex() != 1 {
		t.Errorf("Unexpected current index: %d", c.CurrentIndex())
	}

	// wrapping past A marks a new iteration
	c.AcknowledgeIteration()
	got = c.Next()
	if path(got) != "B" {
		t.Errorf("Expected B, got %s", path(got))
	}
	if !c.IsNewIteration() {
		t.Error("Skip-scan wrap did not mark a new iteration")
	}
}

func TestCursor_NextOnlyOneOnSchedule(t *testing.T) {
	list := items("A", "B", "C")
	list[0].Restriction = never()
	list[2].Restriction = never()
	c := New(list, false, WithClock(testClock()))

	if !c.OnlyOneActive() {
		t.Error("Expected exactly one active item")
	}

	for i := 0; i < 6; i++ {
		if got := c.Next(); path(got) != "B" {
			t.Fatalf("call %d: expected B, got %s", i, path(got))
		}
	}
}

func TestCursor_NothingOnSchedule(t *testing.T) {
	list := items("A", "B", "C")
	probes := 0
	for i := range list {
		list[i].Restriction = never()
	}
	c := New(list, false, WithClock(testClock()))

	if got := c.Next(); got != nil {
		t.Errorf("Expected nil, got %s", path(got))
	}

	if c.CurrentIndex() < 0 || c.CurrentIndex() >= len(list) {
		t.Errorf("Index left out of range: %d", c.CurrentIndex())
	}

	if got := c.Peek(); got != nil {
		t.Errorf("Expected nil peek, got %s", path(got))
	}

	if c.OnlyOneActive() {
		t.Error("No item should be active")
	}

	// the scan is bounded to a single pass plus one
	_, found, _ := scanForward(0, len(list), func(int) bool { probes++; return false })
	if found || probes != len(list)+1 {
		t.Errorf("Unexpected probe count %d", probes)
	}
}

func TestCursor_NextRandom(t *testing.T) {
	draws := []int{2, 0, 1}
	call := 0
	intn := func(n int) int {
		if n != 3 {
			t.Fatalf("Unexpected range %d", n)
		}
		d := draws[call%len(draws)]
		call++
		return d
	}
	c := New(items("A", "B", "C"), true, WithClock(testClock()), WithRandom(intn))

	for i, want := range []string{"C", "A", "B"} {
		if got := c.Next(); path(got) != want {
			t.Errorf("draw %d: expected %s, got %s", i, want, path(got))
		}
	}

	if c.Peek() != nil {
		t.Error("Peek in random mode must return nil")
	}

	if c.Prev() != nil {
		t.Error("Prev in random mode must return nil")
	}
}

func TestCursor_NextRandomSkipsForward(t *testing.T) {
	list := items("A", "B", "C")
	list[2].Restriction = never()
	c := New(list, true, WithClock(testClock()), WithRandom(func(int) int { return 2 }))
	c.AcknowledgeIteration()

	if got := c.Next(); path(got) != "A" {
		t.Errorf("Expected A, got %s", path(got))
	}

	if !c.IsNewIteration() {
		t.Error("Wrap during skip-scan did not mark a new iteration")
	}
}

func TestCursor_Peek(t *testing.T) {
	list := items("A", "B", "C", "D")
	list[1].Restriction = never()
	c := New(list, false, WithClock(testClock()))

	if c.Peek() != nil {
		t.Error("Peek before Next must return nil")
	}

	c.Next()
	c.AcknowledgeIteration()

	if got := c.Peek(); path(got) != "C" {
		t.Errorf("Expected C, got %s", path(got))
	}

	if c.CurrentIndex() != 0 {
		t.Errorf("Peek moved the cursor to %d", c.CurrentIndex())
	}

	c.Next() // C
	c.Next() // D
	if got := c.Peek(); path(got) != "A" {
		t.Errorf("Expected A after wrap, got %s", path(got))
	}

	if c.IsNewIteration() {
		t.Error("Peek changed the new iteration flag")
	}

	if c.CurrentIndex() != 3 {
		t.Errorf("Peek moved the cursor to %d", c.CurrentIndex())
	}
}

func TestCursor_PeekNeverMutates(t *testing.T) {
	list := items("A", "B", "C", "D", "E")
	list[0].Restriction = never()
	list[3].Restriction = never()
	c := New(list, false, WithClock(testClock()))

	next := func() { c.Next() }
	prev := func() { c.Prev() }
	ops := []func(){next, next, prev, next, c.AcknowledgeIteration, next, next, prev, prev, next}
	for i, op := range ops {
		op()
		index, flag := c.CurrentIndex(), c.IsNewIteration()
		c.Peek()
		if c.CurrentIndex() != index || c.IsNewIteration() != flag {
			t.Fatalf("op %d: Peek mutated state", i)
		}
	}
}

func TestCursor_PrevSmallLists(t *testing.T) {
	c := New(items("A"), false, WithClock(testClock()))
	c.Next()
	if c.Prev() != nil {
		t.Error("Prev on a single item must return nil")
	}

	list := items("A", "B")
	list[0].Restriction = never()
	list[1].Restriction = never()
	c = New(list, false, WithClock(testClock()))
	if c.Prev() != nil {
		t.Error("Prev before Next must return nil")
	}

	// schedule is ignored for two items
	c.index = 0
	if got := c.Prev(); path(got) != "A" || c.CurrentIndex() != 1 {
		t.Errorf("Expected A at index 1, got %s at %d", path(got), c.CurrentIndex())
	}
	if got := c.Prev(); path(got) != "B" || c.CurrentIndex() != 0 {
		t.Errorf("Expected B at index 0, got %s at %d", path(got), c.CurrentIndex())
	}
	if got := c.Prev(); path(got) != "A" || c.CurrentIndex() != 1 {
		t.Errorf("Expected A at index 1, got %s at %d", path(got), c.CurrentIndex())
	}
}

func TestCursor_Prev(t *testing.T) {
	c := New(items("A", "B", "C", "D", "E"), false, WithClock(testClock()))
	c.Next()

	// from index 0 the previous item is E, the cursor parks on D
	got := c.Prev()
	if c.CurrentIndex() != 3 {
		t.Errorf("Unexpected current index: %d", c.CurrentIndex())
	}
	if path(got) != "D" {
		t.Errorf("Expected D, got %s", path(got))
	}

	if got := c.Next(); path(got) != "E" {
		t.Errorf("Expected E after going back, got %s", path(got))
	}
}

func TestCursor_PrevCrossingStart(t *testing.T) {
	c := New(items("A", "B", "C", "D", "E"), false, WithClock(testClock()))
	c.Next()
	c.Next() // index 1

	if got := c.Prev(); got != nil {
		t.Errorf("Expected nil, got %s", path(got))
	}

	if c.CurrentIndex() != 4 {
		t.Errorf("Unexpected current index: %d", c.CurrentIndex())
	}

	if got := c.Next(); path(got) != "A" {
		t.Errorf("Expected A, got %s", path(got))
	}
}

func TestCursor_PrevSkipsOffSchedule(t *testing.T) {
	list := items("A", "B", "C", "D", "E")
	list[2].Restriction = never()
	list[3].Restriction = never()
	c := New(list, false, WithClock(testClock()))
	c.index = 4

	// D and C are skipped, B is found, the cursor parks on A
	got := c.Prev()
	if path(got) != "A" || c.CurrentIndex() != 0 {
		t.Errorf("Expected A at 0, got %s at %d", path(got), c.CurrentIndex())
	}

	list = items("A", "B", "C", "D")
	list[1].Restriction = never()
	list[2].Restriction = never()
	c = New(list, false, WithClock(testClock()))
	c.index = 3

	// C and B are skipped, A is found at 0 so the cursor wraps and nothing is returned
	if got := c.Prev(); got != nil {
		t.Errorf("Expected nil, got %s", path(got))
	}
	if c.CurrentIndex() != 3 {
		t.Errorf("Unexpected current index: %d", c.CurrentIndex())
	}
}

func TestCursor_PrevNothingOnSchedule(t *testing.T) {
	list := items("A", "B", "C")
	for i := range list {
		list[i].Restriction = never()
	}
	c := New(list, false, WithClock(testClock()))
	c.index = 1

	if got := c.Prev(); got != nil {
		t.Errorf("Expected nil, got %s", path(got))
	}
}

func TestCursor_OnlyOneActive(t *testing.T) {
	list := items("A", "B", "C")
	c := New(list, false, WithClock(testClock()))
	if c.OnlyOneActive() {
		t.Error("Three active items reported as one")
	}

	list[0].Restriction = never()
	c = New(list, false, WithClock(testClock()))
	if c.OnlyOneActive() {
		t.Error("Two active items reported as one")
	}

	list[1].Restriction = never()
	c = New(list, false, WithClock(testClock()))
	if !c.OnlyOneActive() {
		t.Error("One active item not reported")
	}
}

func TestCursor_ScheduleFollowsClock(t *testing.T) {
	clock := testClock()
	list := items("A", "B")
	list[0].Restriction = Restriction{Daily: &Daily{
		Start: NewTimeOfDay(12, 0, 0),
		End:   NewTimeOfDay(12, 30, 0),
	}}
	c := New(list, false, WithClock(clock))

	if !c.IsOnSchedule(0) {
		t.Error("A should be on schedule at 12:00")
	}

	clock.Advance(30 * time.Minute)
	if c.IsOnSchedule(0) {
		t.Error("A should be off schedule at 12:30")
	}

	if got := c.Next(); path(got) != "B" {
		t.Errorf("Expected B, got %s", path(got))
	}

	if c.IsOnSchedule(-1) || c.IsOnSchedule(2) {
		t.Error("Out of range index reported on schedule")
	}
}

func TestCursor_Accessors(t *testing.T) {
	zero, ten := 0, 10
	no := false
	list := items("A", "B", "C")
	list[0].Restriction = Restriction{ScreenTime: &ten, SendFeedback: &no}
	list[1].Restriction = Restriction{ScreenTime: &zero}
	c := New(list, false)

	if d, ok := c.ScreenTime(0); !ok || d != 10*time.Second {
		t.Errorf("Unexpected screen time: %v %v", d, ok)
	}

	if _, ok := c.ScreenTime(1); ok {
		t.Error("Zero screen time should be unset")
	}

	if _, ok := c.ScreenTime(2); ok {
		t.Error("Missing screen time should be unset")
	}

	if c.SendFeedback(0) {
		t.Error("Feedback should be disabled for A")
	}

	if !c.SendFeedback(1) {
		t.Error("Feedback should default to true")
	}

	if c.Item(3) != nil || c.Item(-1) != nil {
		t.Error("Out of range item returned")
	}
}
