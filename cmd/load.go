package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// user is the document shape inserted by the load command
type user struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

func randomName(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rng.Intn(len(letters))]
	}
	name[0] -= 32
	return string(name)
}

// randomAge is between 18 and 99
func randomAge(rng *rand.Rand) int {
	return rng.Intn(82) + 18
}

func insertBatch(client *http.Client, url string, users []user) error {
	body, err := json.Marshal(map[string]interface{}{"data": users})
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func newLoadCmd() *cobra.Command {
	var (
		serverURL  string
		database   string
		collection string
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:     "load <number_of_users>",
		Short:   "Insert random user documents into a running server",
		Example: "  filestore load 1000 --url http://localhost:8080 --batch 50",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var numUsers int
			if _, err := fmt.Sscanf(args[0], "%d", &numUsers); err != nil || numUsers <= 0 {
				return fmt.Errorf("invalid number of users %q: must be a positive integer", args[0])
			}
			if batchSize <= 0 {
				batchSize = 1
			}

			url := fmt.Sprintf("%s/databases/%s/collections/%s", strings.TrimRight(serverURL, "/"), database, collection)
			client := &http.Client{Timeout: 30 * time.Second}
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Starting load test: inserting %d users to %s\n", numUsers, url)

			startTime := time.Now()
			successCount, errorCount := 0, 0
			reportInterval := max(1, numUsers/10)
			nextReport := reportInterval

			for sent := 0; sent < numUsers; {
				n := min(batchSize, numUsers-sent)
				batch := make([]user, n)
				for i := range batch {
					name := randomName(rng)
					batch[i] = user{Name: name, Age: randomAge(rng), Email: name + "@example.com"}
				}

				if err := insertBatch(client, url, batch); err != nil {
					errorCount += n
					fmt.Fprintf(out, "Error inserting users %d-%d: %v\n", sent+1, sent+n, err)
				} else {
					successCount += n
				}
				sent += n

				if sent >= nextReport || sent == numUsers {
					rate := float64(sent) / time.Since(startTime).Seconds()
					fmt.Fprintf(out, "Progress: %d/%d users (%.1f%%) - Rate: %.1f users/sec - Success: %d, Errors: %d\n",
						sent, numUsers, float64(sent)/float64(numUsers)*100, rate, successCount, errorCount)
					nextReport += reportInterval
				}
			}

			totalTime := time.Since(startTime)
			fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
			fmt.Fprintln(out, "LOAD TEST COMPLETE")
			fmt.Fprintln(out, strings.Repeat("=", 60))
			fmt.Fprintf(out, "Total users attempted: %d\n", numUsers)
			fmt.Fprintf(out, "Successful inserts:    %d\n", successCount)
			fmt.Fprintf(out, "Failed inserts:        %d\n", errorCount)
			fmt.Fprintf(out, "Total time:            %v\n", totalTime)
			fmt.Fprintf(out, "Average rate:          %.2f users/sec\n", float64(numUsers)/totalTime.Seconds())

			if errorCount > 0 {
				return fmt.Errorf("%d inserts failed", errorCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "server URL")
	cmd.Flags().StringVar(&database, "db", "content", "database name")
	cmd.Flags().StringVar(&collection, "collection", "users", "collection name")
	cmd.Flags().IntVar(&batchSize, "batch", 1, "documents per insert request")
	return cmd
}
