package client

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cqserve/cqserve/cq"
	"github.com/cqserve/cqserve/internal/pkg/demo"
	"github.com/cqserve/cqserve/internal/pkg/sequence"
	"github.com/cqserve/cqserve/internal/pkg/server"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// DefaultSequenceLength is used by RunSequence when no Cfg overrides it, mirroring
// mschristensen-risp's client.DefaultWindowSize as a sensible non-zero
// default.
const DefaultSequenceLength = 8

// Client wraps a cq.Client dialed at a fixed address, exposing the demo
// services as plain Go methods instead of requiring callers to know wire
// method names.
type Client struct {
	serverAddr     string
	sequenceLength uint16

	cq *cq.Client
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithServerPort sets the server port to connect to.
func WithServerPort(p uint16) Cfg {
	return func(c *Client) error {
		c.serverAddr = fmt.Sprintf("localhost:%d", p)
		return nil
	}
}

// WithSequenceLength sets the length of sequence requested by RunSequence.
func WithSequenceLength(l uint16) Cfg {
	return func(c *Client) error {
		c.sequenceLength = l
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{sequenceLength: DefaultSequenceLength}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	client.cq = cq.NewClient(client.serverAddr)
	return client, nil
}

// SayHello invokes the Hello Unary RPC.
func (c *Client) SayHello(name string) (string, error) {
	req := &demo.HelloRequest{Name: name}
	var rsp demo.HelloReply
	if err := c.cq.Invoke("Hello", req, &rsp, nil); err != nil {
		return "", errors.Wrap(err, "invoke Hello failed")
	}
	return rsp.Message, nil
}

// arithmetic invokes one of the Arithmetic.* Unary RPCs.
func (c *Client) arithmetic(method string, a, b int64) (int64, error) {
	req := &demo.ArithmeticRequest{A: a, B: b}
	var rsp demo.ArithmeticReply
	if err := c.cq.Invoke(method, req, &rsp, nil); err != nil {
		return 0, errors.Wrapf(err, "invoke %s failed", method)
	}
	return rsp.Result, nil
}

// Sum invokes Arithmetic.Sum.
func (c *Client) Sum(a, b int64) (int64, error) { return c.arithmetic("Arithmetic.Sum", a, b) }

// Product invokes Arithmetic.Product.
func (c *Client) Product(a, b int64) (int64, error) {
	return c.arithmetic("Arithmetic.Product", a, b)
}

// Quotient invokes Arithmetic.Quotient.
func (c *Client) Quotient(a, b int64) (int64, error) {
	return c.arithmetic("Arithmetic.Quotient", a, b)
}

// Publish invokes Admin.Publish, feeding data into the server's Fan for
// delivery to every subscriber of the generic byte-stream surface.
func (c *Client) Publish(data []byte) error {
	req := &server.PublishRequest{Data: data}
	var rsp server.PublishReply
	if err := c.cq.Invoke("Admin.Publish", req, &rsp, nil); err != nil {
		return errors.Wrap(err, "invoke Admin.Publish failed")
	}
	return nil
}

// RunSequence drives the Sequence ServerStream RPC to completion: requests
// a sequence of the configured length, receives every item, verifies the
// server's reported checksum trailer against a locally-computed one, and
// logs the result.
func (c *Client) RunSequence(clientID string) ([]uint32, error) {
	req := &sequence.Request{ClientID: clientID, Length: c.sequenceLength}
	stream, err := c.cq.NewServerStream("Sequence", req, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open Sequence stream failed")
	}
	defer stream.Close()

	seq := make([]uint32, c.sequenceLength)
	for {
		var item sequence.Item
		done, err := stream.Recv(&item)
		if done {
			if err != nil {
				return nil, errors.Wrap(err, "receive sequence item failed")
			}
			break
		}
		if int(item.Index) >= len(seq) {
			return nil, errors.Errorf("sequence item index %d out of range", item.Index)
		}
		seq[item.Index] = item.Value
	}

	sum, err := sequence.Sum(seq)
	if err != nil {
		return nil, errors.Wrap(err, "checksum sequence failed")
	}
	if want, ok := stream.Trailer()["checksum"]; ok {
		if want != strconv.FormatUint(sum, 10) {
			return nil, ErrChecksumMismatch
		}
	}
	logger.WithFields(logrus.Fields{
		"clientID": clientID,
		"sequence": seq,
		"checksum": sum,
	}).Info("client received full sequence")
	return seq, nil
}

// SubscribeGeneric subscribes to the server's generic byte-stream surface,
// parsing each payload as a decimal counter value and invoking onValue,
// until the "! " shutdown sentinel closes the stream.
func (c *Client) SubscribeGeneric(onValue func(int)) error {
	return c.cq.SubscribeGeneric("/stream", func(data string) {
		if data == "! " {
			return
		}
		n, err := strconv.Atoi(data)
		if err != nil {
			logger.WithError(err).Warn("received non-numeric stream payload")
			return
		}
		onValue(n)
	})
}
