package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Amount es un importe monetario. En JSON viaja como string con dos
// decimales ("138.00") y en Mongo se guarda como Decimal128.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MustAmount se usa en tests y datos fijos.
func MustAmount(s string) Amount {
	return Amount{Decimal: decimal.RequireFromString(s)}
}

func (a Amount) String() string {
	return a.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.StringFixed(2))
}

// UnmarshalJSON acepta tanto "12.50" como 12.5.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, err := primitive.ParseDecimal128(a.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("amount %s: %w", a.Decimal.String(), err)
	}
	return bson.MarshalValue(d128)
}

// UnmarshalBSONValue también lee documentos viejos con double, int o string.
func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return err
		}
		a.Decimal = d
	case bsontype.Double:
		a.Decimal = decimal.NewFromFloat(raw.Double())
	case bsontype.Int32:
		a.Decimal = decimal.NewFromInt32(raw.Int32())
	case bsontype.Int64:
		a.Decimal = decimal.NewFromInt(raw.Int64())
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return err
		}
		a.Decimal = d
	case bsontype.Null, bsontype.Undefined:
		a.Decimal = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %s into Amount", t)
	}
	return nil
}
