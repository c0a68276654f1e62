// Package browser usage examples. These are documentation only — without an
// "Output:" comment go test compiles but never executes them, since driving
// a real engine process needs a Chrome binary the test environment may not
// have.
package browser

import (
	"context"
	"fmt"
	"log"

	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/metrics"
)

func Example_basicUsage() {
	recorder := metrics.New(metrics.Config{}, logging.NewDefault(), nil)

	h, err := New(context.Background(), "demo-1", DefaultConfig(), recorder)
	if err != nil {
		log.Fatal(err)
	}
	defer h.Close()

	if err := h.Navigate(context.Background(), "https://example.com"); err != nil {
		log.Fatal(err)
	}

	ok, err := h.WaitForSelector(context.Background(), "body", 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("body visible:", ok)
}

func Example_forceReset() {
	recorder := metrics.New(metrics.Config{}, logging.NewDefault(), nil)
	h, err := New(context.Background(), "demo-2", DefaultConfig(), recorder)
	if err != nil {
		log.Fatal(err)
	}
	defer h.Close()

	if err := h.ForceReset(context.Background()); err != nil {
		log.Printf("force reset failed: %v", err)
	}
	fmt.Println("reset completed")
}
