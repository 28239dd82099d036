package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/LakshayGajra/material-audit-mvp-sub001/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PubSubPushEnvelope is the body Pub/Sub push subscriptions POST.
type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// pubSubHandler acks (204) on success and on messages that can never
// succeed; any other failure answers 500 so Pub/Sub redelivers.
func pubSubHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg PubSubPushEnvelope
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "server.go", "pubSubHandler", "io.ReadAll", nil, err)
			c.Status(http.StatusNoContent)
			return
		}
		// byte slice unmarshalling handles base64 decoding.
		if err := json.Unmarshal(body, &msg); err != nil {
			config.LogError(logger, "server.go", "pubSubHandler", "Unmarshal body", string(body), err)
			c.Status(http.StatusNoContent)
			return
		}
		var m config.PubSubMessage
		if err := json.Unmarshal(msg.Message.Data, &m); err != nil {
			config.LogError(logger, "server.go", "pubSubHandler", "Unmarshal pubsub message", string(msg.Message.Data), err)
			c.Status(http.StatusNoContent)
			return
		}
		if m.BusinessId == "" || m.EventType == "" {
			config.LogError(logger, "server.go", "pubSubHandler", "missing business_id/event_type", m, workflow.ErrUnhandledEvent)
			c.Status(http.StatusNoContent)
			return
		}

		correlationId := m.CorrelationId
		if correlationId == "" {
			correlationId = msg.Message.ID
		}
		ctx, span := tracer.Start(c.Request.Context(), "pubsub."+m.EventType,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("business_id", m.BusinessId),
				attribute.String("message_id", msg.Message.ID),
			))
		defer span.End()
		ctx = utils.SetUsernameInContext(ctx, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)

		if err := workflow.ProcessMessage(ctx, logger, m, msg.Message.ID); err != nil {
			fields := logrus.Fields{
				"field":          "pubSubHandler",
				"business_id":    m.BusinessId,
				"event_type":     m.EventType,
				"reference_id":   m.ReferenceId,
				"message_id":     msg.Message.ID,
				"correlation_id": correlationId,
			}
			span.RecordError(err)
			if workflow.IsPermanent(err) {
				logger.WithFields(fields).Warn("dropping pubsub message: " + err.Error())
				c.Status(http.StatusNoContent)
				return
			}
			logger.WithFields(fields).Error("pubsub processing failed: " + err.Error())
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
