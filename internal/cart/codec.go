package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Persisted cart layout: a bare JSON array of line objects, no envelope and
// no version field. The field names are a fixed contract shared with every
// reader of the storage key.

// EncodeItems serializes the item list for durable storage. The IsOpen flag
// is deliberately not part of the persisted format.
func EncodeItems(items []LineItem) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(it.ProductID)
		e.FieldStart("variantId")
		e.Str(it.VariantID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.Int64(it.UnitPriceMinor)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("image")
		e.Str(it.Image)
		e.FieldStart("size")
		e.Str(it.Size)
		if it.Color != "" {
			e.FieldStart("color")
			e.Str(it.Color)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeItems parses a persisted item list. Any malformed JSON or shape
// violation (non-positive quantity, missing identity) is an error; callers
// hydrating a store treat that as a corrupt cart and start empty.
func DecodeItems(data []byte) ([]LineItem, error) {
	d := jx.DecodeBytes(data)
	var items []LineItem
	if err := d.Arr(func(d *jx.Decoder) error {
		var it LineItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				it.ProductID, err = d.Int64()
			case "variantId":
				it.VariantID, err = d.Str()
			case "quantity":
				it.Quantity, err = d.Int()
			case "price":
				it.UnitPriceMinor, err = d.Int64()
			case "name":
				it.Name, err = d.Str()
			case "image":
				it.Image, err = d.Str()
			case "size":
				it.Size, err = d.Str()
			case "color":
				it.Color, err = d.Str()
			default:
				return d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if it.VariantID == "" {
			return errors.New("line item missing variant id")
		}
		if it.Quantity < 1 {
			return errors.Errorf("line item %d/%s has invalid quantity %d", it.ProductID, it.VariantID, it.Quantity)
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	return items, nil
}
