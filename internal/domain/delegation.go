package domain

// DelegationKeyInfo describes the delegation key used for a request.
type DelegationKeyInfo struct {
	UserID      Identifier `json:"userId"`
	PassID      string     `json:"passId"`
	Permissions []string   `json:"permissions"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *DelegationKeyInfo) UnmarshalJSON(data []byte) error {
	return unmarshal(data, decodeDelegationKeyInfo, k)
}

func decodeDelegationKeyInfo(o object) (DelegationKeyInfo, error) {
	var k DelegationKeyInfo
	if err := o.str("userId", &k.UserID); err != nil {
		return k, err
	}
	if err := o.str("passId", &k.PassID); err != nil {
		return k, err
	}
	err := o.strs("permissions", required, &k.Permissions)
	return k, err
}
