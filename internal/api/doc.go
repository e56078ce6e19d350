// Package api 處理 HTTP 請求路由和處理。
//
// 這個包包含了所有的 HTTP 處理器（handlers），包括 WebSocket 升級端點。
// 讀取 Session 狀態的請求都會經過 Hub 的事件迴圈，因此不會讀到更新到一半的資料。
package api
