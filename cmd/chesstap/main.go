package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harrylevesque/chesstap/internal"
	"github.com/harrylevesque/chesstap/internal/api"
	"github.com/harrylevesque/chesstap/internal/board"
	"github.com/harrylevesque/chesstap/internal/dispatch"
	"github.com/harrylevesque/chesstap/internal/telegram"
	"github.com/harrylevesque/chesstap/internal/utils"
)

type moveJob struct {
	token string
	move  board.Move
}

func main() {
	configPath := flag.String("config", "", "path to config.json")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = utils.FindConfigFile()
	}
	cfg, err := internal.LoadConfig(path)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.TelegramToken == "" {
		log.Fatal("telegramToken is not set")
	}

	logger, err := utils.NewLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Close()
	go logger.RotateLog()

	mapper, err := board.NewMapper(board.Rect{
		Left:   cfg.BoardLeft,
		Top:    cfg.BoardTop,
		Right:  cfg.BoardRight,
		Bottom: cfg.BoardBottom,
	})
	if err != nil {
		log.Fatalf("board calibration error: %v", err)
	}

	tapper := dispatch.NewAdbTapper(cfg.AdbPath, cfg.AdbSerial)
	disp := dispatch.New(tapper, mapper, logger,
		time.Duration(cfg.TapDelayMs)*time.Millisecond,
		time.Duration(cfg.MoveDelayMs)*time.Millisecond)

	client := telegram.NewClient(cfg.TelegramAPIBase, cfg.TelegramToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	moves := make(chan moveJob, 16)
	poller := telegram.NewPoller(client, logger, func(token string) {
		mv, err := mapper.MoveToPoints(token)
		if err != nil {
			logger.Warnf("ignoring move %q: %v", token, err)
			return
		}
		select {
		case moves <- moveJob{token: token, move: mv}:
		default:
			logger.Warnf("move queue full, dropping %s", token)
		}
	}, telegram.PollerOptions{
		Limit:       cfg.PollLimit,
		PollTimeout: cfg.PollTimeoutSec,
		OKDelay:     time.Duration(cfg.PollDelayMs) * time.Millisecond,
		FailDelay:   time.Duration(cfg.PollFailDelayMs) * time.Millisecond,
	})

	go relayMoves(ctx, moves, disp, poller, logger)

	ctrl := &api.Controller{Dispatcher: disp, Mapper: mapper, Poller: poller, Log: logger}
	router := api.NewRouter(ctrl, cfg.APITokenHash)
	go func() {
		logger.Infof("control surface listening on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
			logger.Errorf("http server: %v", err)
		}
	}()

	log.Printf("chesstap running; control surface on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()
	poller.Stop()
	disp.Stop()
}

// relayMoves drains the move queue through the dispatcher and confirms each
// executed move back to the remote party.
func relayMoves(ctx context.Context, moves <-chan moveJob, disp *dispatch.Dispatcher, poller *telegram.Poller, logger *utils.Logger) {
	for {
		var job moveJob
		select {
		case <-ctx.Done():
			return
		case job = <-moves:
		}

		st, err := disp.AwaitReady(ctx)
		if err != nil {
			return
		}
		if st != dispatch.Running {
			logger.Warnf("dropping move %s: dispatcher %s", job.token, st)
			continue
		}
		if err := disp.Execute(ctx, job.move); err != nil {
			logger.Warnf("move %s not executed: %v", job.token, err)
			continue
		}
		if err := poller.SendText(ctx, "played "+job.token); err != nil {
			logger.Warnf("confirmation for %s not delivered: %v", job.token, err)
		}
	}
}
