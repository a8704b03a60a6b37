package tdlib

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errMissingType = errors.New("object has no @type")

// Int64 is a TDLib int64 value. TDLib writes int64 fields as JSON strings;
// plain numbers are accepted too.
type Int64 int64

func (v Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(v), 10))), nil
}

func (v *Int64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "decode int64 %s", data)
	}
	*v = Int64(n)
	return nil
}

// Bool is a TDLib flag. Some TDLib builds emit 0/1 instead of false/true.
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return errors.Errorf("decode bool %s", data)
	}
	return nil
}

// readEnvelope extracts @type and @extra without decoding the payload.
// A non-string @extra is ignored since this client only sends strings.
func readEnvelope(raw []byte) (typ, extra string, err error) {
	d := jx.DecodeBytes(raw)
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "@type":
			s, err := d.Str()
			typ = s
			return err
		case "@extra":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			extra = s
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return "", "", errors.Wrap(err, "read envelope")
	}
	if typ == "" {
		return "", "", errMissingType
	}
	return typ, extra, nil
}
