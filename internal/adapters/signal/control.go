package signal

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.Relay.Pong(conn.id)
}
