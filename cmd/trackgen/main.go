// trackgen fires synthetic storefront events at a running adtrack API, for
// smoke-testing the pipeline end to end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"example.com/adtrack/internal/domain"
)

func main() {
	var (
		target = flag.String("target", "http://localhost:8080", "adtrack API base URL")
		tenant = flag.String("tenant", "tenant-1", "tenant identifier")
		apiKey = flag.String("api-key", "", "X-API-Key value, if the API requires one")
		count  = flag.Int("count", 100, "number of events to send")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	currencies := []string{"USD", "EUR", "GBP"}

	var accepted, suppressed, failed int
	for i := 0; i < *count; i++ {
		ev := domain.Event{
			Name:       domain.AllEventTypes[rand.Intn(len(domain.AllEventTypes))],
			ContentIDs: []string{"sku-" + uuid.NewString()[:8]},
			OccurredAt: time.Now().UTC().Unix(),
		}
		if ev.Name == domain.EventPurchase || ev.Name == domain.EventInitiateCheckout {
			ev.Value = fmt.Sprintf("%d.%02d", rand.Intn(200)+1, rand.Intn(100))
			ev.Currency = currencies[rand.Intn(len(currencies))]
		}

		body, err := json.Marshal(ev)
		if err != nil {
			log.Fatalf("marshal: %v", err)
		}
		req, err := http.NewRequest(http.MethodPost, *target+"/v1/track", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", *tenant)
		req.Header.Set("User-Agent", "trackgen/1.0 (Chrome/126.0.0.0 compatible)")
		if *apiKey != "" {
			req.Header.Set("X-API-Key", *apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			failed++
			log.Printf("send %s: %v", ev.Name, err)
			continue
		}
		var tr struct {
			EventID    *string `json:"event_id"`
			Suppressed bool    `json:"suppressed"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&tr)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode != http.StatusAccepted:
			failed++
			log.Printf("send %s: status %s", ev.Name, resp.Status)
		case tr.Suppressed:
			suppressed++
		default:
			accepted++
		}
	}

	fmt.Printf("sent=%d accepted=%d suppressed=%d failed=%d\n", *count, accepted, suppressed, failed)
}
