package mailer

import (
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// serveSmtp speaks just enough smtp (without AUTH) to receive messages, a
// client that wanted AUTH hangs up and reconnects.
func serveSmtp(t testing.TB) (port int, received <-chan string) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	out := make(chan string, 4)
	handle := func(conn net.Conn) {
		defer conn.Close()
		text := textproto.NewConn(conn)
		text.PrintfLine("220 localhost ESMTP")

		var data strings.Builder
		for {
			line, err := text.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO", "HELO":
				text.PrintfLine("250-localhost")
				text.PrintfLine("250 8BITMIME")
			case "MAIL", "RCPT", "RSET", "NOOP":
				text.PrintfLine("250 OK")
			case "DATA":
				text.PrintfLine("354 go ahead")
				lines, err := text.ReadDotLines()
				if err != nil {
					return
				}
				data.WriteString(strings.Join(lines, "\n"))
				text.PrintfLine("250 OK")
			case "QUIT":
				text.PrintfLine("221 bye")
				if data.Len() > 0 {
					out <- data.String()
				}
				return
			default:
				text.PrintfLine("502 unsupported")
			}
		}
	}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()

	_, portText, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(portText)
	require.NoError(t, err)
	return port, out
}

func TestSmtpSenderWithoutAuth(t *testing.T) {
	port, received := serveSmtp(t)

	sender := NewSmtpSender(SmtpConfig{
		Server:       "127.0.0.1",
		Port:         port,
		EmailAddress: "noreply@vamk.help",
		Password:     "unused",
	})
	err := sender.Send(context.Background(), "e1234567@edu.vamk.fi", "Your grades changed.")
	require.NoError(t, err)

	message := <-received
	require.Contains(t, message, "e1234567@edu.vamk.fi")
	require.Contains(t, message, "Subject: News from VAMK.help")
	require.Contains(t, message, "Your grades changed.")
}

func TestRecipient(t *testing.T) {
	require.Equal(t, "e1234567@edu.vamk.fi", Recipient("E1234567 ", ""))
	require.Equal(t, "e1234567@example.com", Recipient("e1234567", "example.com"))
}

func TestRecorder(t *testing.T) {
	recorder := &Recorder{}
	require.NoError(t, recorder.Send(context.Background(), "a@b", "hi"))
	require.Equal(t, []Mail{{To: "a@b", Body: "hi"}}, recorder.Mails())
}
