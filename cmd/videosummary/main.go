package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/app"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/logging"
)

func main() {
	video := flag.String("video", "", "video identifier or URL to summarize")
	room := flag.String("room", "cli", "room identifier scoping cache and history")
	question := flag.String("question", "", "question about the room's latest summarized video")
	history := flag.Int("history", 0, "print the N most recent summaries for the room")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = application.Stop(ctx) }()

	if err := application.Start(ctx); err != nil {
		logger.Error("background start failed", "error", err)
		os.Exit(1)
	}

	switch {
	case *video != "":
		state, err := application.Summarize(ctx, *room, *video)
		if err != nil {
			logger.Error("summarization failed", "video", *video, "error", err)
			os.Exit(1)
		}
		if state.Title != "" {
			fmt.Printf("%s\n\n", state.Title)
		}
		fmt.Println(state.Summary)

	case *question != "":
		answer, err := application.Answer(ctx, *room, *question)
		if err != nil {
			logger.Error("question failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(answer)

	case *history > 0:
		states, err := application.RecentSummaries(ctx, *room, *history)
		if err != nil {
			logger.Error("history lookup failed", "error", err)
			os.Exit(1)
		}
		for _, s := range states {
			fmt.Printf("%s  %s  %s\n", s.CreatedAt.Format("2006-01-02 15:04"), s.VideoID, s.Title)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}
