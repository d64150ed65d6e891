package outcome

// checkedDigits 从标识符尾部截取校验数字串: 自右向左收集连续的 ASCII 数字，
// 遇到非数字即停。数字不足 n 位时返回 false，调用方按 VOID 处理。
// 信任假设: 这串数字的随机性完全依赖交易所自身的单号生成，不作密码学保证。
func checkedDigits(id string, n int) (string, bool) {
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	run := id[start:end]
	if len(run) < n {
		return "", false
	}
	return run[len(run)-n:], true
}

// digitVal '0'-'9' → 0-9，调用方保证入参是数字字符
func digitVal(b byte) int {
	return int(b - '0')
}
