package ninefs

import "github.com/sirupsen/logrus"

// NewLogger returns a logrus.Logger configured the way the server binary
// wants it: text output, info level by default. Passing debug=true raises
// the level so every received/sent 9P message gets one structured trace
// line, replacing the teacher's free-form LogFunc("-> %s", fcall) hook.
func NewLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func traceRecv(log *logrus.Logger, connID uint32, f Frame) {
	log.WithFields(logrus.Fields{
		"conn": connID,
		"tag":  f.Tag,
		"msg":  MessageName(f.Type),
	}).Debug("<-")
}

func traceSend(log *logrus.Logger, connID uint32, typ uint8, tag uint16) {
	log.WithFields(logrus.Fields{
		"conn": connID,
		"tag":  tag,
		"msg":  MessageName(typ),
	}).Debug("->")
}
