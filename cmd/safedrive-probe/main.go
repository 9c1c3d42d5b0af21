// Command safedrive-probe is a manual smoke-test harness: it wires a
// Context against the in-memory fake runtime, starts a publisher and a
// subscriber on the same topic, and logs each delivery through a Selector.
// It exercises no real middleware and exists for interactive poking, the
// way eventloop/examples does for its own package.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	safedrive "github.com/xbroquer/safe-drive"
	"github.com/xbroquer/safe-drive/runtime"
	"github.com/xbroquer/safe-drive/runtime/fake"
)

// Ping is a minimal demo message type.
type Ping struct {
	Seq int64
}

// TypeSupport implements safedrive.MessageType.
func (Ping) TypeSupport() runtime.TypeSupport {
	return runtime.TypeSupport{Name: "safedrive_probe/msg/Ping"}
}

func main() {
	root := &cobra.Command{
		Use:   "safedrive-probe",
		Short: "Manually exercise a Selector against the in-memory fake runtime",
	}

	var count int
	var period time.Duration

	pubsub := &cobra.Command{
		Use:   "pubsub",
		Short: "Publish N pings on a timer and print each one the subscriber receives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPubSub(count, period)
		},
	}
	pubsub.Flags().IntVar(&count, "count", 5, "number of pings to publish")
	pubsub.Flags().DurationVar(&period, "period", 200*time.Millisecond, "delay between pings")
	root.AddCommand(pubsub)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPubSub(count int, period time.Duration) error {
	safedrive.SetLogger(safedrive.NewZerologLogger(os.Stdout, safedrive.LevelInfo))

	mw := fake.New()
	ctx, err := safedrive.NewContext(mw, safedrive.WithContextName("probe"))
	if err != nil {
		return err
	}
	defer ctx.Close()

	node, err := ctx.CreateNode("prober")
	if err != nil {
		return err
	}
	defer node.Close()

	pub, err := safedrive.CreatePublisher[Ping](node, "ping")
	if err != nil {
		return err
	}
	defer pub.Close()

	sub, err := safedrive.CreateSubscriber[Ping](node, "ping")
	if err != nil {
		return err
	}
	defer sub.Close()

	sel, err := ctx.CreateSelector()
	if err != nil {
		return err
	}
	defer sel.Close()

	received := 0
	safedrive.AddSubscriber(sel, sub, func(p Ping) {
		received++
		fmt.Printf("received ping seq=%d\n", p.Seq)
	}, false)

	var seq int64
	sel.AddWallTimer(period, func() {
		if int(seq) >= count {
			return
		}
		seq++
		if err := pub.Send(Ping{Seq: seq}); err != nil {
			fmt.Fprintln(os.Stderr, "publish failed:", err)
		}
	})

	for received < count {
		if err := sel.Wait(); err != nil {
			return err
		}
	}
	return nil
}
