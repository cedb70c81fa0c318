package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/bracket-tournament/internal/domain"
	"github.com/bracket-tournament/internal/kafka"
	"github.com/google/uuid"
)

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "tournament-level-ups", "Kafka topic")
	tournamentID := flag.Int64("tournament", 1, "Tournament ID the level ups are scored against")
	firstUser := flag.Int64("first-user", 1, "First user ID")
	totalUsers := flag.Int("users", 1000, "Number of consecutive user IDs to level up")
	eventsPerSecond := flag.Int("rate", 100, "Level ups per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	if *totalUsers <= 0 || *eventsPerSecond <= 0 {
		log.Fatal("users and rate must be positive")
	}

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("Level-up load generator")
	fmt.Printf("  Brokers:     %s\n", *brokers)
	fmt.Printf("  Topic:       %s\n", *topic)
	fmt.Printf("  Tournament:  %d\n", *tournamentID)
	fmt.Printf("  Users:       %d..%d\n", *firstUser, *firstUser+int64(*totalUsers)-1)
	fmt.Printf("  Rate:        %d/sec\n", *eventsPerSecond)
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	var successCount, errorCount, sentCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	shutdown := func(reason string) {
		fmt.Printf("\n%s, shutting down...\n", reason)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("Completed. Generated: %d, Acked: %d, Errors: %d\n",
			atomic.LoadInt64(&sentCount),
			atomic.LoadInt64(&successCount),
			atomic.LoadInt64(&errorCount),
		)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*eventsPerSecond))
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	for {
		select {
		case <-sigChan:
			shutdown("Interrupted")
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached")
				return
			}

			// Skew towards the first users so a few groups see heavy movement
			var offset int
			if rand.Intn(100) < 70 {
				offset = rand.Intn(min(20, *totalUsers))
			} else {
				offset = rand.Intn(*totalUsers)
			}

			event := domain.LevelUpEvent{
				EventID:      uuid.NewString(),
				UserID:       *firstUser + int64(offset),
				TournamentID: *tournamentID,
				Timestamp:    time.Now().UTC(),
			}
			msg, err := kafka.EncodeLevelUp(*topic, event)
			if err != nil {
				log.Printf("Failed to encode event: %v", err)
				continue
			}
			producer.Input() <- msg
			atomic.AddInt64(&sentCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Generated: %d | Acked: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&sentCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
