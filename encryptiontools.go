// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег
// Author: Volkov Oleg
// License: MIT
// Лицензия: MIT
// Commercial support and custom development available.
package PowerSNMPWalk

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"errors"
)

// USM privacy: AES in CFB128 mode (RFC 3826) and DES in CBC mode
// (RFC 3414 §8). The scoped PDU is the plaintext.

// fPKCS5Padding pads src to a whole number of blocks. In snmp mode data
// that is already aligned is left as is: the receiver finds the end of the
// scoped PDU from its BER length, not from padding.
func fPKCS5Padding(src []byte, blockSize int, snmp bool) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("zero data length")
	}
	if snmp && len(src)%blockSize == 0 {
		return src, nil
	}
	padding := blockSize - len(src)%blockSize
	return append(src, bytes.Repeat([]byte{byte(padding)}, padding)...), nil
}

// fPKCS5UnPadding strips PKCS#5 padding. In snmp mode anything that does
// not look like valid padding is returned unchanged.
func fPKCS5UnPadding(src []byte, blockSize int, snmp bool) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("zero data length")
	}
	n := int(src[len(src)-1])
	valid := n > 0 && n <= blockSize && n <= len(src) &&
		bytes.Equal(src[len(src)-n:], bytes.Repeat([]byte{byte(n)}, n))
	if !valid {
		if snmp {
			return src, nil
		}
		return nil, errors.New("unpadding error")
	}
	return src[:len(src)-n], nil
}

func checkAESParams(src, key, iv []byte) error {
	if len(src) == 0 {
		return errors.New("source data length error")
	}
	if len(iv) != aes.BlockSize {
		return errors.New("IV length error")
	}
	switch len(key) {
	case 16, 24, 32:
		return nil
	}
	return errors.New("key length error")
}

func encryptAESCFB(src, key, iv []byte) ([]byte, error) {
	if err := checkAESParams(src, key, iv); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(dst, src)
	return dst, nil
}

func decryptAESCFB(src, key, iv []byte) ([]byte, error) {
	if err := checkAESParams(src, key, iv); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(dst, src)
	return dst, nil
}

func encryptDES(src, key, iv []byte) ([]byte, error) {
	if len(iv) != des.BlockSize {
		return nil, errors.New("IV length error")
	}
	if len(key) != 8 {
		return nil, errors.New("key length error")
	}
	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded, err := fPKCS5Padding(src, block.BlockSize(), true)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst, padded)
	return dst, nil
}

func decryptDES(src, key, iv []byte) ([]byte, error) {
	if len(iv) != des.BlockSize {
		return nil, errors.New("IV length error")
	}
	if len(key) != 8 {
		return nil, errors.New("key length error")
	}
	if len(src) == 0 || len(src)%des.BlockSize != 0 {
		return nil, errors.New("source length error")
	}
	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst, src)
	return fPKCS5UnPadding(dst, block.BlockSize(), true)
}
