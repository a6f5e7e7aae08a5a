package debounce_test

import (
	"context"
	"fmt"
	"time"

	"github.com/lifebuddy/gofetch/internal/debounce"
)

// Example shows a burst of schedules collapsing into a single run.
func Example() {
	ran := make(chan struct{}, 10)
	s := debounce.New(func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Three changes in quick succession; each one pushes the run back.
	for i := 0; i < 3; i++ {
		s.ScheduleAfter(50 * time.Millisecond)
		time.Sleep(10 * time.Millisecond)
	}

	<-ran
	time.Sleep(100 * time.Millisecond)
	fmt.Printf("action ran %d time(s)\n", s.Fired())
	// Output: action ran 1 time(s)
}
