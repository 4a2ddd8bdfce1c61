// event-seeder publishes synthetic vendor syslog records to the raw
// ingest subject for load and integration testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/nats-io/nats.go"
)

var (
	natsURL    = flag.String("nats-url", nats.DefaultURL, "NATS server URL")
	subject    = flag.String("subject", "events.raw.ingest", "subject to publish raw envelopes to")
	count      = flag.Int("count", 100, "number of events to generate")
	interval   = flag.Duration("interval", 10*time.Millisecond, "interval between events")
	tenant     = flag.String("tenant", "acme", "tenant attributed to the events")
	sourceType = flag.String("source-type", "infoblox:dhcp", "source type of the generated events")
)

func main() {
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	conn, err := nats.Connect(*natsURL, nats.Name("event-seeder"))
	if err != nil {
		log.Fatalf("connect to NATS: %v", err)
	}
	defer conn.Drain()

	log.Printf("seeding %d %s events to %s", *count, *sourceType, *subject)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	sent := 0
	for i := 0; i < *count; i++ {
		envelope := map[string]any{
			"rawEvent":   dhcpAckLine(),
			"sourceType": *sourceType,
			"tenant":     *tenant,
		}
		payload, err := json.Marshal(envelope)
		if err != nil {
			log.Fatalf("marshal envelope: %v", err)
		}
		if err := conn.Publish(*subject, payload); err != nil {
			log.Printf("publish failed: %v", err)
			continue
		}
		sent++

		select {
		case <-time.After(*interval):
		case <-ctx.Done():
			log.Fatalf("seeding timed out after %d events", sent)
		}
	}

	log.Printf("done, published %d events", sent)
}

// dhcpAckLine renders one Infoblox-style DHCPACK syslog record with
// randomized endpoint details.
func dhcpAckLine() string {
	ts := gofakeit.DateRange(
		time.Now().Add(-24*time.Hour), time.Now()).Format("Jan _2 15:04:05")

	return fmt.Sprintf(
		"<30>%s %s dhcpd[%d]: DHCPACK on %s to %s (%s) via eth%d relay eth%d lease-duration %d",
		ts,
		gofakeit.IPv4Address(),
		gofakeit.Number(1000, 65535),
		gofakeit.IPv4Address(),
		gofakeit.MacAddress(),
		gofakeit.Gamertag(),
		gofakeit.Number(0, 3),
		gofakeit.Number(0, 3),
		gofakeit.Number(300, 86400),
	)
}
