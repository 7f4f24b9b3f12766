// Package logger 建立整個程式共用的 zerolog 記錄器
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

type LogBuild struct {
	writer io.Writer
	path   string
	level  string
}

type LogData struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{writer: os.Stdout}
}

// FromPath 將日誌寫入檔案，優先於 FromWriter
func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromWriter(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// Level 設定最低輸出等級，無法解析時使用 info
func (build *LogBuild) Level(level string) *LogBuild {
	build.level = level
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	writer := build.writer
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		writer = zerolog.SyncWriter(logData.LogFile)
	}

	lvl, err := zerolog.ParseLevel(build.level)
	if err != nil || build.level == "" {
		lvl = zerolog.InfoLevel
	}
	logData.Logger = zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
	return logData, nil
}

// Close 關閉日誌檔（若有）
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}
