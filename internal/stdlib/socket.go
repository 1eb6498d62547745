package stdlib

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rebar/internal/environment"
	"rebar/internal/object"
	"rebar/internal/value"
)

// wsConn mirrors the teacher's WebSocketConn: a connection plus a
// background reader goroutine feeding a buffered channel, so a script's
// .receive() call never blocks the reader on a slow consumer.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
	inbox  chan []byte
}

func dialSocket(url string) (*wsConn, error) {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	ws := &wsConn{conn: conn, inbox: make(chan []byte, 100)}
	go ws.readLoop()
	return ws, nil
}

func (ws *wsConn) readLoop() {
	defer close(ws.inbox)
	for {
		ws.mu.Lock()
		if ws.closed {
			ws.mu.Unlock()
			return
		}
		ws.mu.Unlock()

		kind, msg, err := ws.conn.ReadMessage()
		if err != nil {
			ws.mu.Lock()
			ws.closed = true
			ws.mu.Unlock()
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		select {
		case ws.inbox <- msg:
		default:
			<-ws.inbox
			ws.inbox <- msg
		}
	}
}

func (ws *wsConn) send(kind int, payload []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return fmt.Errorf("socket is closed")
	}
	return ws.conn.WriteMessage(kind, payload)
}

func (ws *wsConn) close() error {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return nil
	}
	ws.closed = true
	ws.mu.Unlock()
	ws.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return ws.conn.Close()
}

func installSocket(env *environment.Environment) {
	instanceVT := &object.VTable{
		Name:    "Socket",
		Methods: map[string]value.Value{},
		Destructor: func(payload interface{}) {
			if ws, ok := payload.(*wsConn); ok {
				ws.close()
			}
		},
	}
	instanceVT.Methods["send"] = env.Bind(socketSend, "Socket.send")
	instanceVT.Methods["receive"] = env.Bind(socketReceive, "Socket.receive")
	instanceVT.Methods["close"] = env.Bind(socketClose, "Socket.close")
	instanceVT.Methods["ping"] = env.Bind(socketPing, "Socket.ping")
	env.RegisterNativeClass("Socket", instanceVT)

	classVT := &object.VTable{
		Name: "SocketClass",
		Ops: object.OperatorSlots{
			New: func(h object.Host, self value.Value, cargs []value.Value) (value.Value, error) {
				if len(cargs) != 1 {
					h.Throw("TypeError", h.Intern([]byte("Socket(url) expects 1 argument")))
				}
				url := string(h.StringBytes(cargs[0]))
				ws, err := dialSocket(url)
				if err != nil {
					h.Throw("RuntimeError", h.Intern([]byte(err.Error())))
				}
				return h.NewNativeObject(instanceVT, ws), nil
			},
		},
	}
	env.SetGlobal("Socket", env.NewNativeObject(classVT, nil))
}

func socketSelf(env *environment.Environment, a []value.Value) *wsConn {
	no := env.NativeObjectOf(a[0])
	if no == nil {
		argError(env, "Socket method called on a non-Socket receiver")
	}
	ws, ok := no.Payload.(*wsConn)
	if !ok {
		argError(env, "Socket method called on a closed or invalid socket")
	}
	return ws
}

func socketSend(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	ws := socketSelf(env, a)
	msg := argString(env, a, 1)
	if err := ws.send(websocket.TextMessage, []byte(msg)); err != nil {
		argError(env, "send failed: %v", err)
	}
	*ret = value.Nil
}

// socketReceive blocks for at most the given timeout (seconds, default 30)
// waiting for the next inbound message.
func socketReceive(ret *value.Value, env *environment.Environment) {
	a := args(env)
	if len(a) < 1 || len(a) > 2 {
		argError(env, "receive([timeout_seconds]) expects 0 or 1 argument")
	}
	ws := socketSelf(env, a)
	timeout := 30 * time.Second
	if len(a) == 2 {
		timeout = time.Duration(argInt(env, a, 1)) * time.Second
	}
	select {
	case msg, ok := <-ws.inbox:
		if !ok {
			argError(env, "socket closed")
		}
		*ret = env.Intern(msg)
	case <-time.After(timeout):
		env.Throw("TimeoutError", env.Intern([]byte("receive timed out")))
	}
}

func socketClose(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	ws := socketSelf(env, a)
	if err := ws.close(); err != nil {
		argError(env, "close failed: %v", err)
	}
	*ret = value.Nil
}

func socketPing(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	ws := socketSelf(env, a)
	if err := ws.send(websocket.PingMessage, []byte{}); err != nil {
		argError(env, "ping failed: %v", err)
	}
	*ret = value.Nil
}
