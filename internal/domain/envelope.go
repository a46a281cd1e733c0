package domain

// Envelope is the wrapper around every API response. Error responses carry a
// message and no data.
type Envelope[D any] struct {
	Data     *D      `json:"data,omitempty"`
	Message  *string `json:"message,omitempty"`
	Location *string `json:"location,omitempty"`
}

// DecodePlayers decodes a player search response.
func DecodePlayers(body []byte) (*Envelope[[]Player], error) {
	return decodeEnvelope(body, listOf(objectOf(decodePlayer)))
}

// DecodeLevels decodes a level search response.
func DecodeLevels(body []byte) (*Envelope[[]Level], error) {
	return decodeEnvelope(body, listOf(objectOf(decodeLevel)))
}

// DecodeDelegationKey decodes a delegation key lookup response.
func DecodeDelegationKey(body []byte) (*Envelope[DelegationKeyInfo], error) {
	return decodeEnvelope(body, objectOf(decodeDelegationKeyInfo))
}

// DecodeMessage decodes only the envelope's message and location, ignoring
// data. Used for error responses whose data shape is unknown.
func DecodeMessage(body []byte) (*Envelope[struct{}], error) {
	return decodeEnvelope(body, func(node) (struct{}, error) { return struct{}{}, nil })
}

func decodeEnvelope[D any](body []byte, data func(node) (D, error)) (*Envelope[D], error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	o, err := root.object()
	if err != nil {
		return nil, err
	}

	env := &Envelope[D]{}
	if err := o.optStr("message", &env.Message); err != nil {
		return nil, err
	}
	if err := o.optStr("location", &env.Location); err != nil {
		return nil, err
	}
	if n := o.get("data"); n.present() {
		v, err := data(n)
		if err != nil {
			return nil, err
		}
		env.Data = &v
	}
	return env, nil
}
