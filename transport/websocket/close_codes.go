package websocket

import "nhooyr.io/websocket"

// Close codes that end the connection without being reported as errors.
var expectedCloseCodes = []websocket.StatusCode{
	websocket.StatusNormalClosure,
	websocket.StatusGoingAway,
	websocket.StatusNoStatusRcvd,
	websocket.StatusAbnormalClosure,
}

func isExpectedClose(err error) bool {
	status := websocket.CloseStatus(err)
	for _, expected := range expectedCloseCodes {
		if status == expected {
			return true
		}
	}
	return false
}
