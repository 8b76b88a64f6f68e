// Package notify forwards insight warnings to a Discord channel.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"financas/internal/core"
	"financas/internal/log"
)

const warningColor = 0xE67E22

var ErrMissingChannel = errors.New("discord channel id is required")

// EmbedSender is the slice of *discordgo.Session the notifier needs.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	sender    EmbedSender
	session   *discordgo.Session
	channelID string
	logger    *log.Logger
}

// NewDiscordNotifier opens a bot session for token.
func NewDiscordNotifier(token, channelID string, logger *log.Logger) (*DiscordNotifier, error) {
	if channelID == "" {
		return nil, ErrMissingChannel
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	n := NewWithSender(session, channelID, logger)
	n.session = session
	return n, nil
}

// NewWithSender builds a notifier around any sender.
func NewWithSender(sender EmbedSender, channelID string, logger *log.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		sender:    sender,
		channelID: channelID,
		logger:    log.OrNop(logger).WithComponent(log.ComponentNotify),
	}
}

// NotifyInsights posts one embed listing the warnings. Lists without
// warnings are not sent.
func (n *DiscordNotifier) NotifyInsights(ctx context.Context, insights []core.Insight) error {
	embed := warningEmbed(insights)
	if embed == nil {
		return nil
	}

	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}

	n.logger.InfoContext(ctx, "Insight warnings sent to Discord",
		"channel_id", n.channelID,
		"warnings", len(embed.Fields))
	return nil
}

func (n *DiscordNotifier) Close() error {
	if n.session != nil {
		return n.session.Close()
	}
	return nil
}

func warningEmbed(insights []core.Insight) *discordgo.MessageEmbed {
	var fields []*discordgo.MessageEmbedField
	for _, in := range insights {
		if in.Type != core.InsightWarning {
			continue
		}
		title := in.Title
		if in.Icon != "" {
			title = in.Icon + " " + title
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  title,
			Value: in.Message,
		})
	}
	if len(fields) == 0 {
		return nil
	}
	return &discordgo.MessageEmbed{
		Title:  "Alertas financeiros",
		Color:  warningColor,
		Fields: fields,
	}
}
