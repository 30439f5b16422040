package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/contracts"
	"github.com/NethermindEth/starknet.go/curve"
	starkutils "github.com/NethermindEth/starknet.go/utils"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/stellar/go/keypair"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"settlement-core/internal/model"
	"settlement-core/pkg/bip39"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/database"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/keyvault"
	"settlement-core/pkg/logger"
)

// ozAccountClassHash OpenZeppelin 账户合约, 和执行器部署用的保持一致
var ozAccountClassHash = mustServiceFelt("0x061dac032f228abef9c6626f995015233097ae253a7f72d68552db02f2971b8f")

// KeyWalletService 托管地址的生成和签名材料的取用。
// 签名材料只在出账瞬间解密, 任何路径都不允许记日志或回传。
type KeyWalletService struct {
	vault keyvault.Vault
}

var KeyWallet *KeyWalletService

func InitKeyWalletService(v keyvault.Vault) {
	KeyWallet = &KeyWalletService{vault: v}
}

// GenerateAddress 为用户在某条链上生成托管地址
func (s *KeyWalletService) GenerateAddress(ctx context.Context, userID uint64, tag chain.Tag, network chain.Network, ss58Prefix uint16) (*model.WalletAddress, error) {
	address, pubKey, material, err := s.generate(tag, network, ss58Prefix)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.vault.Encrypt(material)
	if err != nil {
		return nil, err
	}

	wallet := &model.WalletAddress{
		UserID:       userID,
		Chain:        string(tag),
		Network:      string(network),
		Address:      address,
		PublicKey:    pubKey,
		EncryptedKey: encrypted,
	}
	if err := database.DB.WithContext(ctx).Create(wallet).Error; err != nil {
		return nil, err
	}
	logger.Info("托管地址已生成",
		zap.Uint64("user_id", userID),
		zap.String("chain", string(tag)),
		zap.String("address", address))
	return wallet, nil
}

// GetWallet 取用户在某条链上的托管地址
func (s *KeyWalletService) GetWallet(ctx context.Context, userID uint64, tag chain.Tag, network chain.Network) (*model.WalletAddress, error) {
	var wallet model.WalletAddress
	err := database.DB.WithContext(ctx).
		Where("user_id = ? AND chain = ? AND network = ?", userID, tag, network).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetWalletByAddress 按链上地址反查托管记录 (补扫进程用)
func (s *KeyWalletService) GetWalletByAddress(ctx context.Context, tag chain.Tag, address string) (*model.WalletAddress, error) {
	var wallet model.WalletAddress
	err := database.DB.WithContext(ctx).
		Where("chain = ? AND address = ?", tag, address).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SigningMaterial 解密某个托管地址的签名材料。
// 返回值用完即丢, 不要存到任何会落盘的结构里。
func (s *KeyWalletService) SigningMaterial(wallet *model.WalletAddress) ([]byte, error) {
	return s.vault.Decrypt(wallet.EncryptedKey)
}

func (s *KeyWalletService) generate(tag chain.Tag, network chain.Network, ss58Prefix uint16) (address, pubKey string, material []byte, err error) {
	switch tag {
	case chain.Ethereum:
		key, err := ethcrypto.GenerateKey()
		if err != nil {
			return "", "", nil, err
		}
		addr := ethcrypto.PubkeyToAddress(key.PublicKey)
		return addr.Hex(),
			hex.EncodeToString(ethcrypto.FromECDSAPub(&key.PublicKey)),
			[]byte(hex.EncodeToString(ethcrypto.FromECDSA(key))),
			nil

	case chain.Bitcoin:
		key, err := btcec.NewPrivateKey()
		if err != nil {
			return "", "", nil, err
		}
		params := &chaincfg.MainNetParams
		if network == chain.Testnet {
			params = &chaincfg.TestNet3Params
		}
		pub := key.PubKey()
		addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), params)
		if err != nil {
			return "", "", nil, err
		}
		return addr.EncodeAddress(),
			hex.EncodeToString(pub.SerializeCompressed()),
			[]byte(hex.EncodeToString(key.Serialize())),
			nil

	case chain.Solana:
		wallet := solana.NewWallet()
		return wallet.PublicKey().String(),
			wallet.PublicKey().String(),
			[]byte(wallet.PrivateKey.String()),
			nil

	case chain.Starknet:
		priv, err := curve.Curve.GetRandomPrivateKey()
		if err != nil {
			return "", "", nil, err
		}
		pubX, _, err := curve.Curve.PrivateToPoint(priv)
		if err != nil {
			return "", "", nil, err
		}
		pubFelt := starkutils.BigIntToFelt(pubX)
		// 账户地址是可预计算的, 真正部署推迟到首次出账
		addr := contracts.PrecomputeAddress(&felt.Zero, pubFelt, ozAccountClassHash, []*felt.Felt{pubFelt})
		return addr.String(),
			pubFelt.String(),
			[]byte("0x" + priv.Text(16)),
			nil

	case chain.Stellar:
		kp, err := keypair.Random()
		if err != nil {
			return "", "", nil, err
		}
		return kp.Address(), kp.Address(), []byte(kp.Seed()), nil

	case chain.Polkadot:
		mnemonic, err := bip39.NewMnemonicService().GenerateMnemonic(128)
		if err != nil {
			return "", "", nil, err
		}
		keyring, err := signature.KeyringPairFromSecret(mnemonic, ss58Prefix)
		if err != nil {
			return "", "", nil, err
		}
		return keyring.Address,
			hex.EncodeToString(keyring.PublicKey),
			[]byte(mnemonic),
			nil

	default:
		return "", "", nil, fmt.Errorf("%w: %s", errno.ErrUnsupportedChain, tag)
	}
}

func mustServiceFelt(s string) *felt.Felt {
	f, err := new(felt.Felt).SetString(s)
	if err != nil {
		panic(err)
	}
	return f
}

