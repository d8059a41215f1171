package telematics

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/go-stomp/stomp/v3"
	"github.com/rs/zerolog/log"
)

// StompClient bridges a telematics provider's STOMP topic onto the ingest
// queue. Providers push arrays of fixes as JSON message bodies.
type StompClient struct {
	Address   string
	Username  string
	Password  string
	QueueName string

	Queue rmq.Queue
}

func (s *StompClient) Run() {
	var stompOptions []func(*stomp.Conn) error = []func(*stomp.Conn) error{
		stomp.ConnOpt.Login(s.Username, s.Password),
	}
	conn, err := stomp.Dial("tcp", s.Address, stompOptions...)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to server")
	}

	sub, err := conn.Subscribe(s.QueueName, stomp.AckAuto)
	if err != nil {
		log.Fatal().Str("queue", s.QueueName).Err(err).Msg("cannot subscribe to queue")
	}

	for {
		msg := <-sub.C

		s.ParseMessage(msg.Body)
	}
}

func (s *StompClient) ParseMessage(messageBytes []byte) {
	var fixes []*fleetdf.Fix
	if err := json.Unmarshal(messageBytes, &fixes); err != nil {
		log.Error().Err(err).Msg("Failed to decode telematics message")
		return
	}

	for _, fix := range fixes {
		fixJSON, _ := json.Marshal(fix)
		s.Queue.PublishBytes(fixJSON)
	}

	log.Debug().Int("fixes", len(fixes)).Msg("Forwarded telematics fixes")
}
