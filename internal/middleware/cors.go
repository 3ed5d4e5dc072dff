package middleware

import "net/http"

// NewCORSMiddleware はフロントエンドSPAのオリジンに対するCORSミドルウェアを返す。
// セッションCookieを伴うリクエストを受けるため、ワイルドカード(*)は使用せず
// 設定された単一オリジンのみを許可する。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			// このAPIが実際にルーティングするメソッドのみ許可する
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			// 許可オリジンが固定でも中間キャッシュの誤共有を避けるためVaryを付ける
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
