package rpc

import "encoding/xml"

// Envelope is the wire format for every RPC call: method name, the three
// authentication fields, and a method-specific payload string.
type Envelope struct {
	XMLName   xml.Name `xml:"rpc"`
	Method    string   `xml:"method"`
	Timestamp string   `xml:"timestamp"`
	Nonce     string   `xml:"nonce"`
	Signature string   `xml:"signature"`
	Payload   string   `xml:"payload"`
}

// Result is the wire format for a routine RPC outcome.
type Result struct {
	XMLName xml.Name `xml:"result"`
	Success bool     `xml:"success"`
	Reason  string   `xml:"reason,omitempty"`
	Time    string   `xml:"time,omitempty"`
	Data    string   `xml:"data,omitempty"`
}

// StateXML is the body returned by get_state: self host/port, current UTC,
// and known peers.
type StateXML struct {
	XMLName   xml.Name      `xml:"state"`
	Host      string        `xml:"host"`
	Port      int           `xml:"port"`
	UTC       string        `xml:"utc"`
	KnownPeer []StateXMLPeer `xml:"peers>peer"`
}

// StateXMLPeer is one peer entry inside StateXML.
type StateXMLPeer struct {
	Host string `xml:"host"`
	Port int    `xml:"port"`
}
