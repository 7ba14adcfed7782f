package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/script-bridge/pkg/commsutil"
	"github.com/morezero/script-bridge/pkg/dispatcher"
)

// ContentTypeJavaScript is the content type of the user script.
const ContentTypeJavaScript = "application/javascript"

// subscribe registers the three inbound subjects. Each is a single
// subscription, so NATS hands its messages over one at a time, in order.
func (s *Server) subscribe() error {
	prefix := s.cfg.SubjectPrefix

	routes := []struct {
		subject string
		handler comms.MsgHandler
	}{
		{commsutil.BuildWildcardSubject(prefix), s.handleBridgeMsg},
		{commsutil.BuildStubsSubject(prefix), s.handleStubsMsg},
		{prefix, s.handleEnvelopeMsg},
	}

	for _, r := range routes {
		sub, err := s.nc.Subscribe(r.subject, r.handler)
		if err != nil {
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, r.subject, err)
		}
		s.subs = append(s.subs, sub)
		slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, r.subject))
	}
	return nil
}

// handleBridgeMsg delivers a raw payload published on <prefix>.<bridge>.
func (s *Server) handleBridgeMsg(msg *comms.Msg) {
	name, ok := commsutil.BridgeFromSubject(s.cfg.SubjectPrefix, msg.Subject)
	if !ok {
		// The stubs subject also matches the wildcard.
		return
	}

	payload, err := commsutil.DecodeMsg(msg)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - undecodable payload on %s: %v", logPrefix, msg.Subject, err))
		s.respond(msg, &dispatcher.BridgeResponse{
			Ok:    false,
			Error: &dispatcher.ErrorDetail{Code: "INVALID_REQUEST", Message: "Failed to decode payload"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RequestTimeout)
	defer cancel()

	resp := s.disp.Dispatch(ctx, &dispatcher.BridgeRequest{
		ID:      msg.Header.Get("Bridge-Request-Id"),
		Bridge:  name,
		Method:  dispatcher.MethodDeliver,
		Payload: payload,
	})
	if !resp.Ok {
		slog.Warn(fmt.Sprintf("%s - delivery on %s failed: %s", logPrefix, msg.Subject, resp.Error.Message))
	}
	s.respond(msg, resp)
}

// handleStubsMsg answers with the user script.
func (s *Server) handleStubsMsg(msg *comms.Msg) {
	if msg.Reply == "" {
		return
	}
	reply := comms.NewMsg(msg.Reply)
	reply.Header.Set(commsutil.HeaderContentType, ContentTypeJavaScript)
	reply.Data = []byte(s.reg.UserScript())
	if err := msg.RespondMsg(reply); err != nil {
		slog.Error(fmt.Sprintf("%s - stubs respond: %v", logPrefix, err))
	}
}

// handleEnvelopeMsg dispatches a JSON BridgeRequest envelope.
func (s *Server) handleEnvelopeMsg(msg *comms.Msg) {
	var req dispatcher.BridgeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
		s.respond(msg, &dispatcher.BridgeResponse{
			Ok: false,
			Error: &dispatcher.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Failed to decode request",
			},
		})
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RequestTimeout)
	defer cancel()

	s.respond(msg, s.disp.Dispatch(ctx, &req))
}

// respond replies with resp as JSON when the message expects a reply.
func (s *Server) respond(msg *comms.Msg, resp *dispatcher.BridgeResponse) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - respond: %v", logPrefix, err))
	}
}
