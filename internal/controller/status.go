package controller

import "strings"

// PNRStatusClass はPNRの予約状態を表示クラスに分類する。
// 大文字小文字を区別し、判定順は完全一致・部分一致の順序どおりとする。
func PNRStatusClass(status string) string {
	if status == "Confirmed" {
		return "status confirmed"
	}
	if strings.Contains(status, "RAC") {
		return "status rac"
	}
	if strings.Contains(status, "WL") {
		return "status waiting"
	}
	if status == "Cancelled" {
		return "status cancelled"
	}
	return "status"
}

// LiveStatusClass は運行状況を表示クラスに分類する。
func LiveStatusClass(status string) string {
	if status == "On Time" {
		return "status on-time"
	}
	if strings.Contains(status, "Late") {
		return "status delayed"
	}
	if status == "Cancelled" {
		return "status cancelled"
	}
	return "status"
}
