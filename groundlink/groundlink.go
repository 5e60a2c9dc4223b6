// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package groundlink

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/GermanBionicSystems/fdr/telemetry"
)

// TopicSuffix is appended to the prefix to form the publication topic.
const TopicSuffix = "telemetry"

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("groundlink: broker timeout")

// Opts holds the publication options.
type Opts struct {
	// QoS is the MQTT quality of service, 0 to 2.
	QoS byte
	// Retained marks the last sample as retained on the broker.
	Retained bool
	// Timeout bounds connection and publication acknowledgements.
	Timeout time.Duration
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	QoS:      0,
	Retained: true,
	Timeout:  5 * time.Second,
}

// ClientOptionsFromURL returns the client options and the topic prefix
// described by a broker URL.
//
// The scheme "mqtt" or no scheme selects plain TCP. The "client-id" query
// parameter sets the client identifier.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", fmt.Errorf("groundlink: %w", err)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("groundlink: no host in %q", brokerURL)
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}
	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if id := u.Query().Get("client-id"); id != "" {
		opts.SetClientID(id)
	}
	return opts, strings.Trim(u.Path, "/"), nil
}

// Publisher publishes samples on one topic.
type Publisher struct {
	client paho.Client
	topic  string
	opts   Opts

	mu        sync.Mutex
	published int
}

// New returns a Publisher over an already configured client. The client is
// connected if it is not yet.
func New(c paho.Client, prefix string, opts *Opts) (*Publisher, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("groundlink: invalid QoS %d", opts.QoS)
	}
	p := &Publisher{client: c, topic: Topic(prefix), opts: *opts}
	if !c.IsConnected() {
		if err := p.wait(c.Connect()); err != nil {
			return nil, fmt.Errorf("groundlink: connect: %w", err)
		}
	}
	return p, nil
}

// Dial connects to the broker named by brokerURL.
func Dial(brokerURL string, opts *Opts) (*Publisher, error) {
	o, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return New(paho.NewClient(o), prefix, opts)
}

// Topic returns the topic samples are published on for prefix.
func Topic(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return TopicSuffix
	}
	return prefix + "/" + TopicSuffix
}

// Publish sends one sample.
func (p *Publisher) Publish(s *telemetry.Sample) error {
	b, err := json.Marshal(NewMessage(s))
	if err != nil {
		return fmt.Errorf("groundlink: %w", err)
	}
	if err := p.wait(p.client.Publish(p.topic, p.opts.QoS, p.opts.Retained, b)); err != nil {
		return fmt.Errorf("groundlink: publish: %w", err)
	}
	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	return nil
}

// Published returns the number of samples successfully published.
func (p *Publisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

func (p *Publisher) String() string {
	return "groundlink{" + p.topic + "}"
}

func (p *Publisher) wait(t paho.Token) error {
	if p.opts.Timeout > 0 {
		if !t.WaitTimeout(p.opts.Timeout) {
			return ErrTimeout
		}
	} else {
		t.Wait()
	}
	return t.Error()
}

// Decode parses a payload published by Publisher.
func Decode(payload []byte) (telemetry.Sample, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return telemetry.Sample{}, fmt.Errorf("groundlink: %w", err)
	}
	return m.Sample(), nil
}
