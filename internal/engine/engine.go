// Package engine is the reference diff engine. It lives behind a remote
// transport and is reachable only by message passing; the reconciliation
// pipeline treats it as an opaque collaborator and depends solely on the
// request/response contracts in this file.
package engine

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nicolagi/specdiff/internal/fragment"
	"github.com/nicolagi/specdiff/internal/remote"
)

// Text-alignment request types.
const (
	TypeSplitForDiff = "splitForDiff"
	TypeDiff         = "diff"
)

// TextRequest asks for text-level alignment of two markup strings.
// TypeSplitForDiff returns both strings re-segmented so they share anchor
// points ([2]string); TypeDiff returns one merged annotated markup string.
type TextRequest struct {
	S1   string `json:"s1"`
	S2   string `json:"s2"`
	Type string `json:"type"`
}

// TreeRequest asks for a structural diff of two serialized fragments. The
// response is the merged tree with insertion/deletion wrappers embedded, or
// a bare string when the merge is a single text leaf.
type TreeRequest struct {
	NodeObj1 *fragment.Wire `json:"nodeObj1"`
	NodeObj2 *fragment.Wire `json:"nodeObj2"`
}

// Server consumes requests from a transport and answers them. Workers run
// concurrently, so responses can arrive in any order relative to
// submissions; the client's correlation ids are what keeps callers sane.
type Server struct {
	transport remote.Transport
	workers   int
}

func NewServer(transport remote.Transport, workers int) *Server {
	if workers < 1 {
		workers = 1
	}
	return &Server{transport: transport, workers: workers}
}

// Serve blocks until the transport closes or ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			return s.worker(ctx)
		})
	}
	return g.Wait()
}

func (s *Server) worker(ctx context.Context) error {
	for {
		select {
		case data, ok := <-s.transport.Inbox():
			if !ok {
				return nil
			}
			s.handle(data)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Server) handle(data []byte) {
	var m remote.Message
	if err := json.Unmarshal(data, &m); err != nil {
		log.WithField("cause", err).Warning("Dropping unreadable engine request")
		return
	}
	response := remote.Message{ID: m.ID}
	result, err := s.dispatch(m.Body)
	if err != nil {
		response.Err = err.Error()
	} else {
		response.Body, err = json.Marshal(result)
		if err != nil {
			response.Err = err.Error()
		}
	}
	out, err := json.Marshal(response)
	if err != nil {
		log.WithField("cause", err).Error("Could not marshal engine response")
		return
	}
	if err := s.transport.Send(out); err != nil {
		log.WithField("cause", err).Warning("Could not send engine response")
	}
}

func (s *Server) dispatch(body []byte) (interface{}, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errors.Wrap(err, "engine: unreadable request body")
	}
	switch probe.Type {
	case TypeSplitForDiff, TypeDiff:
		var req TextRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.Wrap(err, "engine: unreadable text request")
		}
		if req.Type == TypeSplitForDiff {
			return splitForDiff(req.S1, req.S2)
		}
		return textDiff(req.S1, req.S2), nil
	case "":
		var req TreeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.Wrap(err, "engine: unreadable tree request")
		}
		if req.NodeObj1 == nil || req.NodeObj2 == nil {
			return nil, errors.New("engine: tree request needs both nodes")
		}
		return mergeTrees(req.NodeObj1, req.NodeObj2), nil
	default:
		return nil, errors.Errorf("engine: unknown request type %q", probe.Type)
	}
}
