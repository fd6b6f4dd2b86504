package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"EnPeak/sdk/go/enpeak"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "enpeakd 地址")
	scenarioID := flag.String("scenario", "cafe_order", "要练习的场景")
	flag.Parse()

	client, err := enpeak.NewClient(*baseURL, nil)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	start, err := client.StartSession(ctx, *scenarioID, "beginner")
	if err != nil {
		fail(err)
	}
	fmt.Printf("[%d/%d] %s\n", start.CurrentStage, start.TotalStages, start.AIMessage)

	reply := start.SuggestedResponses
	for i := 0; i < start.TotalStages && len(reply) > 0; i++ {
		fmt.Printf("> %s\n", reply[0])
		turn, err := client.SendMessage(ctx, start.SessionID, reply[0])
		if err != nil {
			fail(err)
		}
		fmt.Printf("[%d/%d] %s\n", turn.CurrentStage, turn.TotalStages, turn.AIMessage)
		if turn.IsComplete {
			break
		}
		reply = turn.SuggestedResponses
	}

	rep, err := client.EndSession(ctx, start.SessionID)
	if err != nil {
		fail(err)
	}
	fmt.Printf("score=%d turns=%d degraded=%v\n%s\n", rep.OverallScore, rep.TotalTurns, rep.Degraded, rep.Encouragement)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
