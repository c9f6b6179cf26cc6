package dex

import (
	"bytes"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeOrderAction produces the canonical msgpack form of an order
// action. Key order matters: the signature is computed over these exact
// bytes and the venue re-encodes the JSON payload the same way to verify.
func EncodeOrderAction(action OrderAction) ([]byte, error) {
	if action.Type == "" {
		return nil, errors.New("action type is required")
	}
	if len(action.Orders) == 0 {
		return nil, errors.New("action orders are required")
	}
	if action.Grouping == "" {
		action.Grouping = "na"
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(3); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("type"); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(action.Type); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("orders"); err != nil {
		return nil, err
	}
	if err := enc.EncodeArrayLen(len(action.Orders)); err != nil {
		return nil, err
	}
	for _, order := range action.Orders {
		if err := encodeOrderWire(enc, order); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeString("grouping"); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(action.Grouping); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeOrderWire(enc *msgpack.Encoder, order OrderWire) error {
	if order.Symbol == "" {
		return errors.New("order symbol is required")
	}
	if order.Notional == "" {
		return errors.New("order notional is required")
	}
	if err := enc.EncodeMapLen(5); err != nil {
		return err
	}
	if err := enc.EncodeString("s"); err != nil {
		return err
	}
	if err := enc.EncodeString(order.Symbol); err != nil {
		return err
	}
	if err := enc.EncodeString("b"); err != nil {
		return err
	}
	if err := enc.EncodeBool(order.IsBuy); err != nil {
		return err
	}
	if err := enc.EncodeString("n"); err != nil {
		return err
	}
	if err := enc.EncodeString(order.Notional); err != nil {
		return err
	}
	if err := enc.EncodeString("l"); err != nil {
		return err
	}
	if err := enc.EncodeString(order.Leverage); err != nil {
		return err
	}
	if err := enc.EncodeString("r"); err != nil {
		return err
	}
	return enc.EncodeBool(order.ReduceOnly)
}
