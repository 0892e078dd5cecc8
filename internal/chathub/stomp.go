package chathub

import (
	"bytes"
	"strconv"

	"github.com/go-stomp/stomp/v3/frame"
)

// STOMP commands.
const (
	cmdConnect     = "CONNECT"
	cmdStomp       = "STOMP"
	cmdConnected   = "CONNECTED"
	cmdSend        = "SEND"
	cmdSubscribe   = "SUBSCRIBE"
	cmdUnsubscribe = "UNSUBSCRIBE"
	cmdAck         = "ACK"
	cmdNack        = "NACK"
	cmdBegin       = "BEGIN"
	cmdCommit      = "COMMIT"
	cmdAbort       = "ABORT"
	cmdDisconnect  = "DISCONNECT"
	cmdMessage     = "MESSAGE"
	cmdReceipt     = "RECEIPT"
	cmdError       = "ERROR"
)

// STOMP headers.
const (
	hdrAcceptVersion = "accept-version"
	hdrVersion       = "version"
	hdrHeartBeat     = "heart-beat"
	hdrSession       = "session"
	hdrServer        = "server"
	hdrDestination   = "destination"
	hdrID            = "id"
	hdrSubscription  = "subscription"
	hdrMessageID     = "message-id"
	hdrReceipt       = "receipt"
	hdrReceiptID     = "receipt-id"
	hdrContentType   = "content-type"
	hdrContentLength = "content-length"
	hdrMessage       = "message"
	hdrAuthorization = "Authorization"
)

const (
	stompVersion = "1.2"
	serverName   = "camerashop-chat/1.0"
	jsonContent  = "application/json"
)

// decodeFrame parses one frame from a WebSocket message. A heart-beat
// yields a nil frame and no error.
func decodeFrame(data []byte) (*frame.Frame, error) {
	return frame.NewReader(bytes.NewReader(data)).Read()
}

func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func connectedFrame(sessionID string) *frame.Frame {
	return frame.New(cmdConnected,
		hdrVersion, stompVersion,
		hdrSession, sessionID,
		hdrServer, serverName,
		hdrHeartBeat, "0,0",
	)
}

func messageFrame(destination, subscription, messageID string, body []byte) *frame.Frame {
	f := frame.New(cmdMessage,
		hdrDestination, destination,
		hdrSubscription, subscription,
		hdrMessageID, messageID,
		hdrContentType, jsonContent,
		hdrContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	return f
}

func receiptFrame(receiptID string) *frame.Frame {
	return frame.New(cmdReceipt, hdrReceiptID, receiptID)
}

func errorFrame(message, detail string) *frame.Frame {
	f := frame.New(cmdError,
		hdrMessage, message,
		hdrContentType, "text/plain",
	)
	if detail != "" {
		f.Body = []byte(detail)
		f.Header.Set(hdrContentLength, strconv.Itoa(len(f.Body)))
	}
	return f
}
