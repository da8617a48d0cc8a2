// Package grpcweb lets browsers call the event service. It unwraps gRPC-Web
// frames and forwards the raw protobuf bytes to the native gRPC server.
package grpcweb

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// maxBody bounds a single unary request.
const maxBody = 4 << 20

const (
	flagData    = 0x00
	flagTrailer = 0x80
)

// Bridge translates gRPC-Web (browser HTTP/1.1) into native gRPC calls.
type Bridge struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
	log    *zap.Logger
}

// Dial connects to the gRPC server at addr (e.g. "localhost:50051").
func Dial(addr string, log *zap.Logger) (*Bridge, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	b := New(conn, log)
	b.closer = conn
	return b, nil
}

// New wraps an existing connection. The caller keeps ownership of conn.
func New(conn grpc.ClientConnInterface, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{conn: conn, log: log}
}

func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, X-Grpc-Web, X-User-Agent, Authorization, x-grpc-web")
		w.Header().Set("Access-Control-Expose-Headers",
			"Grpc-Status, Grpc-Message, Grpc-Status-Details-Bin, grpc-status, grpc-message")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc-web") {
			http.Error(w, "not grpc-web", http.StatusUnsupportedMediaType)
			return
		}

		b.log.Debug("grpc-web call", zap.String("method", r.URL.Path))
		b.forward(w, r)
	})
}

func (b *Bridge) forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+5))
	if err != nil {
		writeStatus(w, status.New(codes.Internal, "read body failed"))
		return
	}
	payload, err := unframe(body)
	if err != nil {
		writeStatus(w, status.New(codes.InvalidArgument, err.Error()))
		return
	}

	md := metadata.MD{}
	if vals := r.Header.Values("Authorization"); len(vals) > 0 {
		md.Set("authorization", vals...)
	}
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	resp := &rawMsg{}
	err = b.conn.Invoke(ctx, r.URL.Path, &rawMsg{data: payload}, resp, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		st := status.Convert(err)
		b.log.Info("grpc-web call failed",
			zap.String("method", r.URL.Path),
			zap.Stringer("code", st.Code()),
			zap.String("message", st.Message()))
		writeStatus(w, st)
		return
	}
	writeSuccess(w, resp.data)
}

// unframe reads one frame: 1-byte flag, 4-byte big-endian length, message.
func unframe(body []byte) ([]byte, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("body too short")
	}
	n := binary.BigEndian.Uint32(body[1:5])
	if n > maxBody {
		return nil, fmt.Errorf("message too large")
	}
	if int(n)+5 > len(body) {
		return nil, fmt.Errorf("incomplete frame")
	}
	return body[5 : 5+n], nil
}

// rawMsg wraps raw protobuf bytes.
type rawMsg struct{ data []byte }

// rawCodec passes bytes through without marshal/unmarshal.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	return v.(*rawMsg).data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m := v.(*rawMsg)
	m.data = append([]byte(nil), data...)
	return nil
}

// Name doubles as the content-subtype, so the server decodes with its proto codec.
func (rawCodec) Name() string { return "proto" }

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}

func writeStatus(w http.ResponseWriter, st *status.Status) {
	w.Header().Set("Content-Type", "application/grpc-web+proto")
	w.WriteHeader(http.StatusOK)
	w.Write(frame(flagTrailer, []byte(trailer(st))))
}

func writeSuccess(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/grpc-web+proto")
	w.WriteHeader(http.StatusOK)
	w.Write(frame(flagData, data))
	w.Write(frame(flagTrailer, []byte("grpc-status:0\r\n")))
}

// trailer renders the status as HTTP/1 style header lines. Details travel in
// grpc-status-details-bin so browser clients can read the error reason.
func trailer(st *status.Status) string {
	msg := strings.NewReplacer("\r", " ", "\n", " ").Replace(st.Message())
	t := fmt.Sprintf("grpc-status:%d\r\ngrpc-message:%s\r\n", st.Code(), msg)
	if len(st.Proto().GetDetails()) > 0 {
		if raw, err := proto.Marshal(st.Proto()); err == nil {
			t += "grpc-status-details-bin:" + base64.RawStdEncoding.EncodeToString(raw) + "\r\n"
		}
	}
	return t
}
