// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 這個包包含請求日誌、panic 復原與 CORS，所有日誌都透過 zap 輸出。
package middleware
