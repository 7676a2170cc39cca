package agent

import "fmt"

// User-facing chat texts.
const (
	msgProcessing        = "🤖 Memproses permintaan Anda..."
	msgAIErrorPrefix     = "⚠️ Error memanggil AI: "
	msgSuiteListHeader   = "📋 Daftar Test Suites:\n\n"
	msgRunBackground     = "🕒 Test sedang dijalankan di background. Report akan dikirim otomatis."
	msgScheduleRejected  = "⚠️ Gagal menjadwalkan test. Silakan coba lagi."
	msgScheduleError     = "❌  Gagal menjadwalkan test. Pastikan format waktu benar."
	msgScheduleConfirmed = "📅 Test berhasil dijadwalkan. Anda akan menerima laporan setelah selesai."
)

func msgRunStarting(suitePath string) string {
	return fmt.Sprintf("🚀 Menjalankan: *%s*...", suitePath)
}

func msgScheduling(suitePath, runAt, zone string) string {
	return fmt.Sprintf("🗓 Menjadwalkan: *%s* pada %s %s...", suitePath, runAt, zone)
}
