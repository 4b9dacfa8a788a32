package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// handlePriceStream streams price quotes to a websocket viewer.
//
// The current quote is sent on connection, then one after every fetch. The first
// viewer starts price tracking, the last one to leave stops it.
func (s *Server) handlePriceStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied.
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	quotes, unsubscribe := s.tracker.Subscribe()
	defer unsubscribe()
	s.addViewer()
	defer s.removeViewer()
	log.Debug().Int("viewers", s.Viewers()).Msg("price viewer connected")

	// viewers do not send anything, reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(v any) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			log.Debug().Err(err).Msg("price viewer write failed")
			return false
		}
		return true
	}
	if !send(newQuoteResponse(s.tracker.Quote())) {
		return
	}
	for {
		select {
		case <-closed:
			log.Debug().Msg("price viewer disconnected")
			return
		case q := <-quotes:
			if !send(newQuoteResponse(q)) {
				return
			}
		}
	}
}
