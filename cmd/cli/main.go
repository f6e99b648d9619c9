package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var LogLevel = &slog.LevelVar{}

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: LogLevel,
}))

func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := main_(ctx); err != nil {
		os.Exit(1)
	}
}

func main_(ctx context.Context) (err error) {
	initRoot(rootCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
	err = rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		return err
	}
	return
}
