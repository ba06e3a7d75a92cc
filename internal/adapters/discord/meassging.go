package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

var replyLog logrus.FieldLogger = logrus.StandardLogger()

func SendEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, msg string) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		replyLog.WithError(err).Warn("SendEphemeral")
	}
	return err
}

// Defer efímero (para trabajos >3s)
func DeferEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		replyLog.WithError(err).Warn("DeferEphemeral")
	}
	return err
}

func ReplyEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, content string, embeds ...*discordgo.MessageEmbed) {
	_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content:         content,
		Embeds:          embeds,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err == nil {
		return
	}
	// Fallback sólo si todavía no hay respuesta (webhook desconocido)
	var reqErr *discordgo.RESTError
	if errors.As(err, &reqErr) && reqErr.Message != nil && reqErr.Message.Code == discordgo.ErrCodeUnknownWebhook {
		_ = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
				Embeds:  embeds,
			},
		})
		return
	}
	replyLog.WithError(err).Warn("ReplyEphemeral")
}

// errorMessage traduce un error del servicio a la respuesta para el moderador.
func errorMessage(err error) string {
	var de *domain.Error
	if !errors.As(err, &de) {
		return "❌ Ocurrió un error inesperado procesando el comando. Contacta con un administrador."
	}
	switch de.Kind {
	case domain.KindValidation:
		return "⚠️ " + de.Msg
	case domain.KindPermission:
		return "🔒 " + de.Msg
	case domain.KindExternalPlatform:
		return fmt.Sprintf("⚠️ Discord rechazó la acción: %v", de.Err)
	case domain.KindPersistence:
		return "❌ No se pudo guardar en la base de datos. Probá de nuevo en un rato."
	default:
		return "❌ Ocurrió un error inesperado procesando el comando. Contacta con un administrador."
	}
}

// partialMessage: el registro quedó hecho pero el efecto en Discord falló.
func partialMessage(done string, err error) string {
	var de *domain.Error
	cause := err
	if errors.As(err, &de) && de.Err != nil {
		cause = de.Err
	}
	return fmt.Sprintf("%s\n⚠️ Quedó registrado, pero Discord falló: %v", done, cause)
}
