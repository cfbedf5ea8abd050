//go:build ignore

// Publishes a load job straight onto the Redis stream and waits for the
// worker's done event:
//
//	go run scripts/publish_load_job.go --file /data/cells.ndjson --source hansen
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/forest-density-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	redisAddr := pflag.String("redis", "localhost:6379", "Redis address for streams")
	file := pflag.String("file", "", "input path on the worker host")
	source := pflag.String("source", "", "source label")
	replace := pflag.Bool("replace", false, "replace rows of --source")
	mode := pflag.String("mode", "", "strict or lenient")
	wait := pflag.Duration("wait", 5*time.Minute, "how long to wait for the done event")
	pflag.Parse()

	if *file == "" {
		log.Fatal("--file is required")
	}

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	event := domain.LoadJobEvent{
		JobID: uuid.New(),
		Options: domain.LoadOptions{
			Path:    *file,
			Source:  *source,
			Replace: *replace,
			Mode:    domain.LoadMode(*mode),
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// remember where the done stream ends so only new results are read
	lastID := "$"
	if msgs, err := client.XRevRangeN(ctx, domain.StreamForestDensityLoadDone, "+", "-", 1).Result(); err == nil && len(msgs) > 0 {
		lastID = msgs[0].ID
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamForestDensityLoad,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Job published\n")
	fmt.Printf("   Stream: %s\n", domain.StreamForestDensityLoad)
	fmt.Printf("   Message ID: %s\n", id)
	fmt.Printf("   Job ID: %s\n", event.JobID)
	fmt.Printf("\nWaiting for %s...\n", domain.StreamForestDensityLoadDone)

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		results, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{domain.StreamForestDensityLoadDone, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Fatalf("Failed to read done stream: %v", err)
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				raw, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				var done domain.LoadDoneEvent
				if err := json.Unmarshal([]byte(raw), &done); err != nil || done.JobID != event.JobID {
					continue
				}

				pretty, _ := json.MarshalIndent(done, "", "  ")
				fmt.Printf("\n%s\n", pretty)
				return
			}
		}
	}

	fmt.Println("Timeout waiting for the done event")
}
