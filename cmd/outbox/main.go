package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/marcelsud/payment-webhooks/config"
	"github.com/marcelsud/payment-webhooks/internal/bus"
	"github.com/marcelsud/payment-webhooks/internal/http/chi"
	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/postgres"
)

/* outbox - Inspects and drains the webhook outbox
 * Usage: go run cmd/outbox/main.go [-relay] [-purge 168h]
 * Lists pending entries, optionally relays one batch to the configured bus
 * and deletes published entries older than -purge
 */

func main() {
	relayOnce := flag.Bool("relay", false, "publish one batch of pending entries")
	purge := flag.Duration("purge", 0, "delete published entries older than this age")
	flag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx := context.Background()
	outbox, err := postgres.NewOutbox(cfg.PostgresDSN)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer outbox.Close(ctx)

	if err := outbox.EnsureSchema(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	entries, err := outbox.FindPending(ctx, cfg.GetOutboxBatchSize())
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("%d pending entr(ies)\n", len(entries))
	for _, e := range entries {
		fmt.Printf("%s  %-24s attempts=%d  last_error=%q  created=%s\n",
			e.ID, e.Subject, e.Attempts, e.LastError, e.CreatedAt.Format(time.RFC3339))
	}

	if *relayOnce && len(entries) > 0 {
		publisher, _, err := bus.Open(cfg)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer publisher.Close()

		dispatcher := webhook.NewDispatcher(publisher, cfg.GetDispatchTimeout())
		relay := webhook.NewRelay(outbox, dispatcher, chi.NewLogger("outbox"))
		relay.BatchSize = cfg.GetOutboxBatchSize()
		relay.MaxAttempts = cfg.GetOutboxMaxAttempts()

		published, err := relay.DispatchOnce(ctx)
		fmt.Printf("published %d entr(ies)\n", published)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	if *purge > 0 {
		deleted, err := outbox.DeletePublished(ctx, time.Now().Add(-*purge))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("deleted %d published entr(ies)\n", deleted)
	}
}
