package models

import "encoding/json"

// PolicyVersion is the IAM policy language version used for every document.
const PolicyVersion = "2012-10-17"

// PolicyDocument is an IAM trust or resource policy.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is a single policy statement. Action is a string or a list of strings.
type Statement struct {
	Sid       string            `json:"Sid,omitempty"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal,omitempty"`
	Action    interface{}       `json:"Action"`
	Resource  string            `json:"Resource,omitempty"`
}

// JSON renders the document the way IAM and S3 expect it in request payloads.
func (d PolicyDocument) JSON() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
