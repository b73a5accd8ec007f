package lh42uhs

// CalculateChecksum 计算 LH42UHS 校验和：除校验字节外所有字节的异或
func CalculateChecksum(data []byte) byte {
	var checksum byte
	for _, b := range data {
		checksum ^= b
	}
	return checksum
}

// VerifyChecksum 校验整帧（最后一个字节为校验和）
func VerifyChecksum(frame []byte) bool {
	if len(frame) < 1 {
		return false
	}
	last := len(frame) - 1
	return CalculateChecksum(frame[:last]) == frame[last]
}

// appendChecksum 追加校验字节
func appendChecksum(data []byte) []byte {
	return append(data, CalculateChecksum(data))
}
