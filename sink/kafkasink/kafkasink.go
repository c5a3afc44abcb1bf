// Package kafkasink implements the optional downstream event fan-out: a
// nil-able publisher that mirrors persisted rows onto Kafka topics (one for
// coin events, one for NFT events) for consumers outside the
// indexer (block explorers, alerting). It is never required for
// correctness of the core pipeline -- a nil *Publisher is always safe to
// call through. Built on Shopify/sarama.
package kafkasink

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/log"
)

var logger = log.NewModuleLogger("kafkasink")

// Config names the broker list and topic prefix.
type Config struct {
	Brokers     []string
	TopicPrefix string
}

// Publisher wraps a sarama async producer. The zero value is not usable;
// use (*Publisher)(nil) to disable publishing entirely, which every method
// below tolerates.
type Publisher struct {
	producer sarama.AsyncProducer
	prefix   string
}

// Open starts a sarama async producer against cfg.Brokers.
func Open(cfg Config) (*Publisher, error) {
	conf := sarama.NewConfig()
	conf.Producer.RequiredAcks = sarama.WaitForLocal
	conf.Producer.Compression = sarama.CompressionSnappy
	conf.Producer.Flush.Frequency = 500 * time.Millisecond
	conf.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, conf)
	if err != nil {
		return nil, errors.Wrap(err, "kafkasink: failed to start producer")
	}

	p := &Publisher{producer: producer, prefix: cfg.TopicPrefix}
	go p.drainErrors()
	return p, nil
}

func (p *Publisher) drainErrors() {
	if p == nil {
		return
	}
	for err := range p.producer.Errors() {
		logger.Error("kafka publish failed", "err", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}

// PublishCoinEvents fans each row out individually, keyed by contract so a
// downstream consumer can maintain per-contract ordering.
func (p *Publisher) PublishCoinEvents(rows []types.CoinEventRow) error {
	if p == nil {
		return nil
	}
	for _, row := range rows {
		if err := p.publish(p.prefix+"-coin-events", string(row.ContractAccountID), row); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) PublishNftEvents(rows []types.NftEventRow) error {
	if p == nil {
		return nil
	}
	for _, row := range rows {
		if err := p.publish(p.prefix+"-nft-events", string(row.ContractAccountID), row); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(topic, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "kafkasink: failed to marshal event")
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	return nil
}
