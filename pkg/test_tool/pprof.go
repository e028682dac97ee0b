package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"marketplace_chat_service/pkg/config"
	"marketplace_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof 非 production 且 addr 有設定時啟動 pprof 監控伺服器
//
//	curl http://localhost:6060/debug/pprof/
//	go tool pprof http://localhost:6060/debug/pprof/goroutine
//
// goroutine profile 可以看出是否有 session 的 read/write pump 沒有退出
func StartPprof(addr string) {
	if addr == "" || config.IsProduction() {
		logger.Log.Info("pprof is disabled")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Errorf("pprof server failed: ", err)
		}
	}()
}
