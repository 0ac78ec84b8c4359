package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/payment-webhooks/config"
	"github.com/marcelsud/payment-webhooks/webhook/payload"
	"github.com/marcelsud/payment-webhooks/webhook/signature"
)

/* sign - Signs an event body with STRIPE_ENDPOINT_SECRET for local testing
 * Usage: go run cmd/sign/main.go [-file event.json] [-order ord_1] [-url http://localhost:8080/webhook]
 * Without -file a charge.succeeded event is generated
 */

func main() {
	file := flag.String("file", "", "event JSON file; a charge.succeeded event is generated when empty")
	orderID := flag.String("order", "ord_local", "metadata.orderId of the generated event")
	url := flag.String("url", "", "POST the signed event to this URL")
	flag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	body, err := eventBody(*file, *orderID)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	header, err := signature.Sign(signature.NewSecret(cfg.StripeEndpointSecret), time.Now(), body)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *url == "" {
		fmt.Printf("%s: %s\n", signature.HeaderName, header)
		fmt.Println(string(body))
		return
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.HeaderName, header)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("%d %s\n", resp.StatusCode, bytes.TrimSpace(respBody))
}

func eventBody(file, orderID string) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}

	object, err := json.Marshal(map[string]any{
		"id":          "ch_" + uuid.NewString()[:8],
		"object":      "charge",
		"metadata":    map[string]string{"orderId": orderID},
		"receipt_url": "https://pay.stripe.com/receipts/local",
	})
	if err != nil {
		return nil, err
	}

	return payload.Encode(payload.Event{
		ID:     "evt_" + uuid.NewString()[:8],
		Type:   payload.ChargeSucceeded,
		Object: object,
	})
}
