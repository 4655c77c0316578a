package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	mq "github.com/yeisme/mediavault/pkg/internal/storage/mq"
	"github.com/yeisme/mediavault/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:   "mq",
		Short: "object event bus commands",
	}

	mqTypesCmd = &cobra.Command{
		Use:     "types",
		Short:   "print supported message queue types",
		Aliases: []string{"list", "ls"},
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range mq.RegisteredTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	// 打印上传、删除、迁移事件，直到 Ctrl-C. gochannel 只在进程内可见，需配合 nats 或 redis.
	mqTailCmd = &cobra.Command{
		Use:   "tail",
		Short: "print object events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := mq.New(ctx, &cfg.MQ)
			if err != nil {
				return err
			}
			defer client.Close()

			return tailEvents(ctx, cmd, client)
		},
	}
)

// tailPayload 覆盖全部对象事件负载的字段.
type tailPayload struct {
	Object queue.ObjectRef `json:"object"`
	From   queue.ObjectRef `json:"from"`
	To     queue.ObjectRef `json:"to"`
}

func tailEvents(ctx context.Context, cmd *cobra.Command, sub queue.Subscriber) error {
	g, gctx := errgroup.WithContext(ctx)
	out := make(chan string)

	for _, topic := range queue.ObjectTopics {
		ch, err := sub.Subscribe(gctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		g.Go(func() error {
			for msg := range ch {
				line := topic + " " + string(msg.Payload)
				if ev, err := queue.ParseWatermillMessage[tailPayload](msg); err == nil {
					key := ev.Payload.Object.ObjectKey
					if key == "" {
						key = ev.Payload.From.ObjectKey + " -> " + ev.Payload.To.ObjectKey
					}

					line = fmt.Sprintf("%s %-18s %s", ev.Header.OccurredAt.Local().Format("15:04:05"), topic, key)
				}

				msg.Ack()

				select {
				case out <- line:
				case <-gctx.Done():
					return nil
				}
			}

			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(out)
	}()

	for line := range out {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	return nil
}

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	mqCmd.AddCommand(mqTypesCmd, mqTailCmd)
	rootCmd.AddCommand(mqCmd)
}
