package api

import (
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jwriter"
)

// Status is the snapshot returned by the Status command, encoded as one JSON line.
type Status struct {
	Points      int
	Pending     int
	Building    bool
	Connections int
	Algorithm   string
}

var _ easyjson.Marshaler = Status{}

func (st Status) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"points":`)
	w.Int(st.Points)
	w.RawString(`,"pending":`)
	w.Int(st.Pending)
	w.RawString(`,"building":`)
	w.Bool(st.Building)
	w.RawString(`,"connections":`)
	w.Int(st.Connections)
	w.RawString(`,"algorithm":`)
	w.String(st.Algorithm)
	w.RawByte('}')
}

func (st Status) String() string {
	b, err := easyjson.Marshal(st)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
