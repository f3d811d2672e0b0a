package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"writemystory/reply-service/internal/model"
	"writemystory/reply-service/internal/repository"
	"writemystory/reply-service/internal/resolver"
)

type resolveFlags struct {
	channel string
	from    string
	subject string
	body    string
	headers []string
}

func resolveCmd(e *env) *cobra.Command {
	var f resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an inbound reply without storing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := f.message()
			if err != nil {
				return err
			}

			pool, err := e.pool()
			if err != nil {
				return err
			}
			r := resolver.New(repository.NewQuestionRepository(pool), repository.NewTeamMemberRepository(pool), e.log)

			res, err := r.Resolve(commandContext(cmd), msg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&f.channel, "channel", string(model.ChannelEmail), "email or whatsapp")
	cmd.Flags().StringVar(&f.from, "from", "", "sender address or phone number")
	cmd.Flags().StringVar(&f.subject, "subject", "", "email subject")
	cmd.Flags().StringVar(&f.body, "body", "", "message body")
	cmd.Flags().StringArrayVar(&f.headers, "header", nil, "transport header as Name=Value (repeatable)")
	return cmd
}

func (f resolveFlags) message() (*model.InboundMessage, error) {
	channel := model.Channel(strings.ToLower(f.channel))
	if channel != model.ChannelEmail && channel != model.ChannelWhatsApp {
		return nil, fmt.Errorf("unknown channel %q", f.channel)
	}

	headers, err := parseHeaders(f.headers)
	if err != nil {
		return nil, err
	}

	return &model.InboundMessage{
		Channel: channel,
		From:    f.from,
		Subject: f.subject,
		Body:    f.body,
		Headers: headers,
	}, nil
}

func parseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("header %q is not Name=Value", p)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}
