package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/PhiFever/vision-bridge/pkg/utils"
)

// Level 表示日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	CRITICAL
)

var levelNames = map[Level]string{
	DEBUG:    "DEBUG",
	INFO:     "INFO",
	WARNING:  "WARNING",
	ERROR:    "ERROR",
	CRITICAL: "CRITICAL",
}

// String 返回级别名称
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel 将配置中的级别字符串解析为 Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARNING, nil
	case "ERROR":
		return ERROR, nil
	case "CRITICAL", "FATAL":
		return CRITICAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// Logger 是主日志记录器结构
type Logger struct {
	level   Level
	writers []io.Writer
	closers []io.Closer
	mu      sync.Mutex
}

var (
	globalLogger *Logger
	loggerMu     sync.Mutex
)

// Setup 使用指定的级别初始化全局日志记录器
// 日志同时写入标准输出和应用数据目录下按日期命名的文件
func Setup(level Level) (*Logger, error) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if globalLogger != nil {
		globalLogger.level = level
		return globalLogger, nil
	}

	logDir, err := utils.GetAppDataPath("logs")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	logFile := filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	globalLogger = &Logger{
		level:   level,
		writers: []io.Writer{os.Stdout, file},
		closers: []io.Closer{file},
	}
	return globalLogger, nil
}

// SetOutput 用给定的输出替换全局日志记录器（不写文件），主要用于测试和 c-shared 库
func SetOutput(level Level, writers ...io.Writer) *Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if globalLogger != nil {
		globalLogger.closeFiles()
	}
	globalLogger = &Logger{level: level, writers: writers}
	return globalLogger
}

// SetLevel 设置日志记录级别
func SetLevel(level Level) {
	GetLogger().setLevel(level)
}

// GetLogger 返回全局日志记录器，未初始化时只输出到标准错误
func GetLogger() *Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if globalLogger == nil {
		globalLogger = &Logger{level: INFO, writers: []io.Writer{os.Stderr}}
	}
	return globalLogger
}

// Close 关闭日志文件
func Close() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if globalLogger != nil {
		globalLogger.closeFiles()
		globalLogger = nil
	}
}

func (l *Logger) setLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) closeFiles() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.closers {
		c.Close()
	}
	l.closers = nil
}

// log 使用指定的级别写入日志消息
func (l *Logger) log(level Level, msg string, includeTrace bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s [%s] %s\n", timestamp, level, msg)
	if includeTrace && level >= ERROR {
		line += fmt.Sprintf("%s [%s] %s\n", timestamp, level, getStackTrace())
	}

	for _, w := range l.writers {
		io.WriteString(w, line)
	}
}

// Debug 记录调试消息
func Debug(msg string) {
	GetLogger().log(DEBUG, msg, false)
}

// Debugf 记录格式化的调试消息
func Debugf(format string, args ...interface{}) {
	GetLogger().log(DEBUG, fmt.Sprintf(format, args...), false)
}

// Info 记录信息消息
func Info(msg string) {
	GetLogger().log(INFO, msg, false)
}

// Infof 记录格式化的信息消息
func Infof(format string, args ...interface{}) {
	GetLogger().log(INFO, fmt.Sprintf(format, args...), false)
}

// Warning 记录警告消息
func Warning(msg string) {
	GetLogger().log(WARNING, msg, false)
}

// Warningf 记录格式化的警告消息
func Warningf(format string, args ...interface{}) {
	GetLogger().log(WARNING, fmt.Sprintf(format, args...), false)
}

// Error 记录带有堆栈跟踪的错误消息
func Error(msg string) {
	GetLogger().log(ERROR, msg, true)
}

// Errorf 记录格式化的带有堆栈跟踪的错误消息
func Errorf(format string, args ...interface{}) {
	GetLogger().log(ERROR, fmt.Sprintf(format, args...), true)
}

// ErrorNoTrace 记录不带堆栈跟踪的错误消息
func ErrorNoTrace(msg string) {
	GetLogger().log(ERROR, msg, false)
}

// Criticalf 记录格式化的带有堆栈跟踪的严重消息
func Criticalf(format string, args ...interface{}) {
	GetLogger().log(CRITICAL, fmt.Sprintf(format, args...), true)
}

// Writer 返回一个以指定级别逐行写日志的 io.Writer，用于接入第三方库的日志输出
func Writer(level Level) io.Writer {
	return levelWriter(level)
}

type levelWriter Level

func (w levelWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		GetLogger().log(Level(w), msg, false)
	}
	return len(p), nil
}

// getStackTrace 返回当前的堆栈跟踪
func getStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
